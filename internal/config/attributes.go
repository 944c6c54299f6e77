package config

import (
	"strconv"
	"strings"
	"time"
)

// Embedding attribute names read from the host page.
const (
	AttrContainerID     = "container-id"
	AttrCompanyID       = "company-id"
	AttrAPIURL          = "api-url"
	AttrTheme           = "theme"
	AttrAutoRefresh     = "auto-refresh"
	AttrRefreshInterval = "refresh-interval"
	AttrShowCharts      = "show-charts"
)

// Attributes are the declarative settings a host page puts on the embed tag.
type Attributes map[string]string

// HasContainer reports whether the embed names a container. Embeds without
// one are ignored.
func (a Attributes) HasContainer() bool {
	return strings.TrimSpace(a[AttrContainerID]) != ""
}

// FromAttributes builds a widget config from embed attributes. Booleans are
// true unless set to exactly "false"; refresh-interval is in milliseconds and
// falls back to the default when absent or invalid.
func FromAttributes(a Attributes) WidgetConfig {
	cfg := DefaultWidget()
	if v := strings.TrimSpace(a[AttrContainerID]); v != "" {
		cfg.ContainerID = v
	}
	if v := strings.TrimSpace(a[AttrCompanyID]); v != "" {
		cfg.CompanyID = v
	}
	if v := strings.TrimSpace(a[AttrAPIURL]); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(a[AttrTheme]); v != "" {
		cfg.Theme = v
	}
	cfg.AutoRefresh = a[AttrAutoRefresh] != "false"
	cfg.ShowCharts = a[AttrShowCharts] != "false"
	if ms, err := strconv.Atoi(strings.TrimSpace(a[AttrRefreshInterval])); err == nil && ms > 0 {
		cfg.RefreshInterval = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// ParseAttributes reads `key=value` pairs separated by whitespace or commas,
// e.g. "container-id=box api-url=http://host:5000 auto-refresh=false".
func ParseAttributes(s string) Attributes {
	out := Attributes{}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		k = strings.TrimPrefix(strings.TrimSpace(k), "data-")
		out[k] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return out
}
