// Package archive keeps raw fetched posting content in object storage so
// extraction can be re-run later without refetching.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures the S3 archiver.
type Options struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for S3-compatible stores (MinIO, localstack)
}

// S3Archiver writes one markdown object per fetched URL.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// New builds an archiver. The endpoint override allows pointing at local
// S3-compatible storage during development.
func New(ctx context.Context, opts Options) (*S3Archiver, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					SigningRegion:     opts.Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.Endpoint != ""
	})
	return &S3Archiver{client: client, bucket: opts.Bucket}, nil
}

// Archive stores the raw content under a key derived from the URL. The same
// URL always maps to the same key, so re-runs overwrite instead of piling up.
func (a *S3Archiver) Archive(ctx context.Context, url, content string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(keyFor(url)),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/markdown"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func keyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "raw/" + hex.EncodeToString(sum[:]) + ".md"
}
