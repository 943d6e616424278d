package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// receiptCacheControl: ключи уникальны, объект по ключу не меняется.
const receiptCacheControl = "public, max-age=31536000, immutable"

type CloudflareR2UploaderConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

func (c CloudflareR2UploaderConfig) missing() []string {
	fields := []struct{ name, value string }{
		{"account id", c.AccountID},
		{"access key id", c.AccessKeyID},
		{"secret access key", c.SecretAccessKey},
		{"bucket name", c.BucketName},
		{"public base url", c.PublicBaseURL},
	}
	var names []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			names = append(names, f.name)
		}
	}
	return names
}

// receiptBucket хранит квитанции об оплате в бакете R2.
type receiptBucket struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewCloudflareR2Uploader(ctx context.Context, cfg CloudflareR2UploaderConfig) (FileUploader, error) {
	if missing := cfg.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("r2 config: missing %s", strings.Join(missing, ", "))
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2Endpoint(cfg.AccountID))
	})
	return &receiptBucket{client: client, bucket: cfg.BucketName, baseURL: cfg.PublicBaseURL}, nil
}

func r2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", strings.TrimSpace(accountID))
}

// receiptPutInput открывается в браузере (inline), а не скачивается.
func receiptPutInput(bucket, key, contentType string, body io.Reader) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:             aws.String(bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
		CacheControl:       aws.String(receiptCacheControl),
	}
}

func (b *receiptBucket) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	out, err := b.client.PutObject(ctx, receiptPutInput(b.bucket, key, contentType, reader))
	if err != nil {
		return nil, fmt.Errorf("put receipt %s: %w", key, err)
	}
	return &UploadResult{
		Key:      key,
		Location: b.GetPublicURL(key),
		ETag:     strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// Delete без ключа ничего не делает: у платежа может не быть квитанции.
func (b *receiptBucket) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete receipt %s: %w", key, err)
	}
	return nil
}

func (b *receiptBucket) GetPublicURL(key string) string {
	return PublicURL(b.baseURL, key)
}

// PublicURL joins base and key with exactly one slash between them.
func PublicURL(base, key string) string {
	if base == "" || key == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
