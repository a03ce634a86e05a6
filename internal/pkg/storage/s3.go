package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

// S3Provider stores media in an S3 compatible bucket.
type S3Provider struct {
	client *s3.Client
	cfg    config.S3Config
}

func NewS3Provider(ctx context.Context, cfg config.S3Config, appEnv string) (*S3Provider, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required for the s3 storage driver")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 storage driver")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	p := &S3Provider{client: client, cfg: cfg}
	if err := p.ensureBucket(ctx, appEnv); err != nil {
		return nil, err
	}
	log.Infof("[Storage] S3 provider ready for bucket %s", cfg.BucketName)
	return p, nil
}

func (p *S3Provider) Name() string { return "s3" }

// ensureBucket checks the bucket and creates it outside production.
func (p *S3Provider) ensureBucket(ctx context.Context, appEnv string) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.cfg.BucketName)})
	if err == nil {
		return nil
	}
	if appEnv == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", p.cfg.BucketName, err)
	}

	log.Warnf("[Storage] Bucket %s not found, attempting to create it", p.cfg.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(p.cfg.BucketName)}
	if p.cfg.EndpointURL == "" && p.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(p.cfg.Region),
		}
	}
	if _, err := p.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", p.cfg.BucketName, err)
	}
	return nil
}

func (p *S3Provider) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"upload-source": "uzeed-media",
		},
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return p.publicURL(key), nil
}

func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", p.cfg.BucketName, key, err)
	}
	return nil
}

func (p *S3Provider) publicURL(key string) string {
	switch {
	case p.cfg.PublicBaseURL != "":
		return p.cfg.PublicBaseURL + "/" + key
	case p.cfg.EndpointURL != "":
		return strings.TrimRight(p.cfg.EndpointURL, "/") + "/" + p.cfg.BucketName + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.cfg.BucketName, p.cfg.Region, key)
	}
}
