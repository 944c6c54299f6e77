// Package publish uploads generated reports to object storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"review-insights-go/internal/config"
)

// Uploader stores one object and returns its location.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Presigner hands out time-limited download links for stored objects.
type Presigner interface {
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DefaultLinkExpiry is how long an emailed report link stays valid.
const DefaultLinkExpiry = config.DefaultLinkExpiry

// Key names a weekly report object: <prefix>/<company>/<YYYY>-<MM>-W<week>.<ext>,
// where week is the ISO week of t.
func Key(prefix, companyID string, t time.Time, ext string) string {
	_, week := t.ISOWeek()
	name := fmt.Sprintf("%04d-%02d-W%d.%s", t.Year(), int(t.Month()), week, strings.TrimPrefix(ext, "."))
	return path.Join(strings.Trim(prefix, "/"), companyID, name)
}

// ContentType maps a report extension to its MIME type.
func ContentType(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "pdf":
		return "application/pdf"
	case "html":
		return "text/html; charset=utf-8"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

type S3Publisher struct {
	client *s3.Client
	bucket string
}

func NewS3Publisher(ctx context.Context, cfg config.PublishConfig) (*S3Publisher, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Publisher{client: client, bucket: bucket}, nil
}

func (p *S3Publisher) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

// Presign returns a GET URL for key that expires after expiry
// (DefaultLinkExpiry when zero or less).
func (p *S3Publisher) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	req, err := s3.NewPresignClient(p.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}
