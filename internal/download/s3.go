package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cis-portal/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the part of the S3 client the saver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Saver archives artifacts in an S3-compatible bucket.
type S3Saver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Saver builds a saver from cfg. Static credentials are used when set,
// otherwise the default AWS credential chain.
func NewS3Saver(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Saver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SaverWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3SaverWithClient wraps an existing client.
func NewS3SaverWithClient(client ObjectPutter, bucket, prefix string, logger *zap.Logger) *S3Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Saver{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *S3Saver) Save(ctx context.Context, a Artifact) (string, error) {
	key := path.Join(strings.Trim(s.prefix, "/"), SafeName(a.Filename))
	ct := a.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(a.Data),
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(int64(len(a.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	s.logger.Debug("artifact archived", zap.String("bucket", s.bucket), zap.String("key", key))
	return "s3://" + s.bucket + "/" + key, nil
}
