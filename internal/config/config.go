// Package config loads runtime settings from an optional YAML file and the
// environment, and parses widget embedding attributes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultContainerID     = "instareview-widget"
	DefaultCompanyID       = "123456789A_123456_01-01_FNB"
	DefaultAPIURL          = "http://localhost:5000"
	DefaultTheme           = "light"
	DefaultRefreshInterval = 60 * time.Second
	DefaultAddr            = ":5000"
	DefaultCron            = "0 6 * * 1"
	DefaultConcurrency     = 4
	DefaultS3Prefix        = "instareview-reports"
	DefaultSMTPPort        = 465
	DefaultFromEmail       = "reports@instareview.ai"
	DefaultLinkExpiry      = 7 * 24 * time.Hour
)

type Config struct {
	Widget    WidgetConfig    `yaml:"widget"`
	Server    ServerConfig    `yaml:"server"`
	Report    ReportConfig    `yaml:"report"`
	Publish   PublishConfig   `yaml:"publish"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Directory DirectoryConfig `yaml:"directory"`
	Email     EmailConfig     `yaml:"email"`
}

type WidgetConfig struct {
	ContainerID     string        `yaml:"container_id"`
	CompanyID       string        `yaml:"company_id"`
	APIURL          string        `yaml:"api_url"`
	Theme           string        `yaml:"theme"`
	AutoRefresh     bool          `yaml:"auto_refresh"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ShowCharts      bool          `yaml:"show_charts"`
	// SendQuery puts companyId on the data request. Off by default: the
	// endpoint has always been called without parameters.
	SendQuery bool `yaml:"send_query"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type ReportConfig struct {
	CompanyName string `yaml:"company_name"`
	City        string `yaml:"city"`
	Industry    string `yaml:"industry"`
	OutputDir   string `yaml:"output_dir"`
	PDF         bool   `yaml:"pdf"`
	Workbook    bool   `yaml:"workbook"`
}

// PublishConfig targets an S3-compatible bucket. Static keys are optional;
// without them the default AWS credential chain applies.
type PublishConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type ScheduleConfig struct {
	Cron        string   `yaml:"cron"`
	Companies   []string `yaml:"companies"`
	Concurrency int      `yaml:"concurrency"`
}

type DatasetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// DirectoryConfig points at a companies file (.json or .yaml) holding
// id, companyName, city, industry and email per company.
type DirectoryConfig struct {
	Path string `yaml:"path"`
}

// EmailConfig enables report emails when Host is set. Port 465 speaks TLS
// from the start; other ports upgrade with STARTTLS when offered.
type EmailConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	From        string        `yaml:"from"`
	ImplicitTLS bool          `yaml:"implicit_tls"`
	LinkExpiry  time.Duration `yaml:"link_expiry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Widget:   DefaultWidget(),
		Server:   ServerConfig{Addr: DefaultAddr},
		Report:   ReportConfig{OutputDir: "reports"},
		Publish:  PublishConfig{Region: "us-east-1", Prefix: DefaultS3Prefix},
		Schedule: ScheduleConfig{Cron: DefaultCron, Concurrency: DefaultConcurrency},
		Dataset:  DatasetConfig{Path: "output_data/customer_feedback.json", Watch: true},
		Email:    EmailConfig{Port: DefaultSMTPPort, From: DefaultFromEmail, ImplicitTLS: true, LinkExpiry: DefaultLinkExpiry},
	}
}

func DefaultWidget() WidgetConfig {
	return WidgetConfig{
		ContainerID:     DefaultContainerID,
		CompanyID:       DefaultCompanyID,
		APIURL:          DefaultAPIURL,
		Theme:           DefaultTheme,
		AutoRefresh:     true,
		RefreshInterval: DefaultRefreshInterval,
		ShowCharts:      true,
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. A missing file is an error; an empty path is not.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	setString(&cfg.Widget.APIURL, "API_URL")
	setString(&cfg.Widget.CompanyID, "COMPANY_ID")
	setString(&cfg.Widget.ContainerID, "WIDGET_CONTAINER_ID")
	setString(&cfg.Widget.Theme, "WIDGET_THEME")
	if v := os.Getenv("REFRESH_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Widget.RefreshInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	setString(&cfg.Report.CompanyName, "COMPANY_NAME")
	setString(&cfg.Report.OutputDir, "REPORT_OUTPUT_DIR")
	setString(&cfg.Publish.Bucket, "AWS_S3_BUCKET")
	setString(&cfg.Publish.Region, "AWS_REGION")
	setString(&cfg.Publish.Endpoint, "AWS_S3_ENDPOINT")
	setString(&cfg.Schedule.Cron, "REPORT_CRON")
	setString(&cfg.Dataset.Path, "DATASET_PATH")
	setString(&cfg.Directory.Path, "COMPANIES_FILE")
	setString(&cfg.Email.Host, "SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Email.Port = port
			cfg.Email.ImplicitTLS = port == DefaultSMTPPort
		}
	}
	setString(&cfg.Email.Username, "SMTP_USERNAME")
	setString(&cfg.Email.Password, "SMTP_PASSWORD")
	setString(&cfg.Email.From, "SMTP_FROM_EMAIL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// CronParser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as @daily.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func ParseCron(expr string) (cron.Schedule, error) {
	return CronParser.Parse(expr)
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Widget.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.Cron != "" {
		if _, err := ParseCron(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
		}
	}
	if c.Schedule.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("schedule.concurrency must not be negative"))
	}
	if c.Email.Host != "" && (c.Email.Port <= 0 || c.Email.Port > 65535) {
		errs = append(errs, fmt.Errorf("email.port %d out of range", c.Email.Port))
	}
	if c.Email.LinkExpiry < 0 {
		errs = append(errs, errors.New("email.link_expiry must not be negative"))
	}
	return errors.Join(errs...)
}

func (w WidgetConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(w.APIURL) == "" {
		errs = append(errs, errors.New("widget.api_url is required"))
	}
	if w.RefreshInterval <= 0 {
		errs = append(errs, errors.New("widget.refresh_interval must be positive"))
	}
	if w.Theme != "light" && w.Theme != "dark" {
		errs = append(errs, fmt.Errorf("widget.theme %q: want light or dark", w.Theme))
	}
	return errors.Join(errs...)
}
