// Package s3 provides an S3-backed key-value storage backend. Each record is
// stored as one object keyed by its path, with the update time in object
// metadata.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/storage"
)

const (
	KeyBucket          = "bucket"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyPrefix          = "prefix"
	KeyAccessKeyID     = "access_key_id"
	KeySecretAccessKey = "secret_access_key"
	KeyForcePathStyle  = "force_path_style"
)

const metaUpdatedAt = "updated-at"

func init() {
	physical.Register("s3", NewFactory, Defaults)
}

// Defaults returns the default configuration for the S3 backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyRegion:          "us-east-1",
		KeyEndpoint:        "",
		KeyPrefix:          "",
		KeyAccessKeyID:     "",
		KeySecretAccessKey: "",
		KeyForcePathStyle:  "false",
	}
}

// NewFactory creates a new S3 backend from a configuration map.
func NewFactory(ctx context.Context, config map[string]string) (physical.Backend, error) {
	bucket := storage.GetString(config, KeyBucket, "")
	if bucket == "" {
		return nil, storage.NewConfigError("s3", KeyBucket, "cannot be empty")
	}

	region := storage.GetString(config, KeyRegion, "us-east-1")
	endpoint := storage.GetString(config, KeyEndpoint, "")
	prefix := storage.GetString(config, KeyPrefix, "")
	accessKeyID := storage.GetString(config, KeyAccessKeyID, "")
	secretAccessKey := storage.GetString(config, KeySecretAccessKey, "")

	forcePathStyle, err := storage.GetBool(config, KeyForcePathStyle, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("s3", KeyForcePathStyle, config[KeyForcePathStyle], err.Error())
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", "", "failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if forcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	// Fail fast: verify bucket access.
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("s3", KeyBucket, "bucket not accessible", err)
	}

	slog.Info("s3 kvstore initialized", "bucket", bucket, "region", region, "prefix", prefix)

	return &Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

// Backend is an S3 implementation of physical.Backend.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	closed atomic.Bool
}

func (b *Backend) key(path string) string {
	return b.prefix + path
}

func (b *Backend) Get(ctx context.Context, path string) (*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, physical.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %q: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: read body: %w", path, err)
	}

	return &physical.Record{
		Path:      path,
		Value:     data,
		UpdatedAt: parseUpdatedAt(out.Metadata, out.LastModified),
	}, nil
}

func (b *Backend) Put(ctx context.Context, path string, value []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Body:   bytes.NewReader(value),
		Metadata: map[string]string{
			metaUpdatedAt: strconv.FormatInt(time.Now().UTC().UnixNano(), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", path, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	keys, err := b.listKeys(ctx, b.key(path+"/"))
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", path, err)
	}
	keys = append(keys, b.key(path))

	for _, k := range keys {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return fmt.Errorf("s3 delete %q: %w", path, err)
		}
	}
	return nil
}

func (b *Backend) List(ctx context.Context, path string) ([]*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	scanPrefix := b.prefix
	if path != "" {
		scanPrefix = b.key(path + "/")
	}
	keys, err := b.listKeys(ctx, scanPrefix)
	if err != nil {
		return nil, fmt.Errorf("s3 list %q: %w", path, err)
	}

	var out []*physical.Record
	for _, k := range keys {
		recPath := k[len(b.prefix):]
		seg := physical.ChildSegment(path, recPath)
		if seg == "" || recPath != physical.JoinPath(path, seg) {
			continue
		}
		rec, err := b.Get(ctx, recPath)
		if err != nil {
			if errors.Is(err, physical.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	stats := &physical.Stats{BackendType: "s3"}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 stats: %w", err)
		}
		for _, obj := range page.Contents {
			stats.Records++
			stats.SizeBytes += aws.ToInt64(obj.Size)
		}
	}
	return stats, nil
}

func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *Backend) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func parseUpdatedAt(metadata map[string]string, lastModified *time.Time) time.Time {
	if v, ok := metadata[metaUpdatedAt]; ok {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(0, ns).UTC()
		}
	}
	if lastModified != nil {
		return lastModified.UTC()
	}
	return time.Time{}
}

// isNotFound reports whether err is an S3 NoSuchKey or NotFound error.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
