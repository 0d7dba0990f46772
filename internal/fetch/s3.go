// Package fetch downloads migration bundles from remote object storage into
// a repository's local migrations directory before a gate run.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/groblegark/bootgate/internal/model"
)

// S3Source syncs migration files from an S3-compatible bucket. Objects live
// under <prefix>/<underscored repo>/migrations/.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates an S3 bundle source. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Source(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3opts...)
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Sync downloads the repository's bundle objects into dir, overwriting
// local files of the same name. Migration units are append-only, so an
// overwrite only ever refreshes identical content.
func (s *S3Source) Sync(ctx context.Context, repo model.RepoConfig, dir string) error {
	keyPrefix := repoKeyPrefix(s.prefix, repo.Name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create migrations dir: %w", err)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects under %s: %w", keyPrefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := objectFileName(keyPrefix, key)
			if name == "" {
				continue
			}
			if err := s.download(ctx, key, filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *S3Source) download(ctx context.Context, key, dest string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 get object %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// repoKeyPrefix is the object-key prefix for one repository's bundle,
// mirroring the local migrations directory layout.
func repoKeyPrefix(prefix, repoName string) string {
	return path.Join(prefix, model.Underscore(repoName), "migrations") + "/"
}

// objectFileName maps an object key to its local file name. Keys outside the
// prefix, directory markers, and nested keys are skipped.
func objectFileName(keyPrefix, key string) string {
	name, ok := strings.CutPrefix(key, keyPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
