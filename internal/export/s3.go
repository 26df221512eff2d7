package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"htnadmin/internal/config"
	"htnadmin/internal/logging"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads exports to a bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archiver builds an S3 client from the default AWS credential chain.
// Path-style addressing keeps S3-compatible endpoints working.
func NewS3Archiver(ctx context.Context, cfg config.S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export.s3.bucket is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	endpoint := awsCfg.BaseEndpoint
	if cfg.Endpoint != "" {
		endpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: endpoint,
		UsePathStyle: true,
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key is the object key a local file is stored under.
func (a *S3Archiver) Key(localPath string) string {
	return path.Join(a.prefix, filepath.Base(localPath))
}

// Archive implements Archiver.
func (a *S3Archiver) Archive(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := a.Key(localPath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        f,
		ContentType: aws.String("text/csv"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	loc := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	logging.Export("Archived %s to %s", localPath, loc)
	return loc, nil
}
