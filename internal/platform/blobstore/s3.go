package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicBaseURL, when set, prefixes object keys in returned URLs
	// (typically a CDN in front of the bucket).
	PublicBaseURL string
}

// S3Store writes artifacts to an S3-compatible bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible providers (MinIO and friends) need path-style addressing.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: objectBaseURL(cfg),
	}, nil
}

// objectBaseURL is the URL prefix of every object key.
func objectBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func objectURL(base, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segs, "/")
}

func (s *S3Store) Upload(ctx context.Context, p, contentType string, data []byte) (string, error) {
	key, err := checkUpload(p, data)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %q: %w", key, err)
	}
	return objectURL(s.baseURL, key), nil
}
