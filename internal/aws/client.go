package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when a storage source does not name one
const DefaultRegion = "us-east-1"

// S3Options describes an S3-compatible endpoint and its static credentials
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// ClientOption allows customizing how the SDK config is loaded
type ClientOption func(*clientOptions)

type clientOptions struct {
	profile string
	region  string
}

// WithProfile sets the shared config profile
func WithProfile(profile string) ClientOption {
	return func(o *clientOptions) {
		o.profile = profile
	}
}

// WithRegion sets the region
func WithRegion(region string) ClientOption {
	return func(o *clientOptions) {
		o.region = region
	}
}

// LoadConfig loads the SDK config from the default chain with the given options
func LoadConfig(ctx context.Context, opts ...ClientOption) (aws.Config, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var configOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		configOpts = append(configOpts, config.WithRegion(o.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

// NewS3Client creates an S3 client for an S3-compatible endpoint using
// static credentials and path-style addressing.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			opts.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
