package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appcfg "github.com/rankforge/core/internal/config"
)

const s3UploadTimeout = 45 * time.Second

type s3Client struct {
	client       *s3.Client
	bucket       string
	region       string
	endpoint     string
	customDomain string
	pathStyle    bool
}

// s3Configured reports whether the options carry any S3 credentials at all.
// A blank section means archives stay local only.
func s3Configured(opts appcfg.S3Options) bool {
	return strings.TrimSpace(opts.Bucket) != "" ||
		strings.TrimSpace(opts.AccessKeyID) != "" ||
		strings.TrimSpace(opts.SecretAccessKey) != ""
}

func newS3Client(opts appcfg.S3Options) (*s3Client, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, errors.New("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	pathStyle := opts.PathStyleAccess
	if endpoint != "" && !opts.PathStyleAccess {
		pathStyle = true
	}

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &s3Client{
		client:       client,
		bucket:       bucket,
		region:       region,
		endpoint:     endpoint,
		customDomain: strings.TrimRight(strings.TrimSpace(opts.CustomDomain), "/"),
		pathStyle:    pathStyle,
	}, nil
}

// Upload puts the payload under the object key and returns the public URL.
func (u *s3Client) Upload(ctx context.Context, objectKey string, payload []byte, contentType string) (string, error) {
	key := normalizeObjectKey(objectKey)
	if key == "" {
		return "", errors.New("invalid s3 object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s3UploadTimeout)
	defer cancel()

	_, err := u.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return u.publicURL(key), nil
}

func (u *s3Client) publicURL(key string) string {
	if u.customDomain != "" {
		return u.customDomain + "/" + key
	}

	base := u.endpoint
	if base == "" {
		base = fmt.Sprintf("https://s3.%s.amazonaws.com", u.region)
	}
	if u.pathStyle {
		return base + "/" + u.bucket + "/" + key
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return base + "/" + u.bucket + "/" + key
	}
	if !strings.HasPrefix(strings.ToLower(parsed.Host), strings.ToLower(u.bucket)+".") {
		parsed.Host = u.bucket + "." + parsed.Host
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + key
	return parsed.String()
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}
