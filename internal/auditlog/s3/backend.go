// Package s3 provides an S3-backed audit log backend. Each record is one
// JSON object; object keys sort newest first.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/storage"
)

const (
	KeyBucket          = "bucket"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyPrefix          = "prefix"
	KeyAccessKeyID     = "access_key_id"
	KeySecretAccessKey = "secret_access_key"
	KeyForcePathStyle  = "force_path_style"

	recordDir = "audit/"
	suffix    = ".json"
)

func init() {
	auditlog.Register("s3", NewFactory, Defaults)
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
func NewFactory(ctx context.Context, config map[string]string) (auditlog.Backend, error) {
	set := storage.NewSettings("s3", config)
	bucket, err := set.Required(KeyBucket)
	if err != nil {
		return nil, err
	}
	region := set.String(KeyRegion, "us-east-1")
	endpoint := set.String(KeyEndpoint, "")
	prefix := set.String(KeyPrefix, "")
	accessKeyID := set.String(KeyAccessKeyID, "")
	secretAccessKey := set.String(KeySecretAccessKey, "")

	forcePathStyle, err := set.Bool(KeyForcePathStyle, false)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, set.Fail("", "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = forcePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, set.Fail(KeyBucket, "bucket not accessible", err)
	}

	slog.Info("s3 auditlog initialized", "bucket", bucket, "region", region, "prefix", prefix)
	return &Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

// Backend is an S3 implementation of auditlog.Backend.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	closed atomic.Bool
}

func (b *Backend) dir() string { return b.prefix + recordDir }

func (b *Backend) key(rec *auditlog.Record) string {
	return b.dir() + auditlog.SortKey(rec) + suffix
}

// Put uploads a record.
func (b *Backend) Put(ctx context.Context, rec *auditlog.Record) error {
	if b.closed.Load() {
		return auditlog.ErrClosed
	}
	if err := auditlog.Validate(rec); err != nil {
		return err
	}

	data, err := auditlog.Encode(rec)
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(rec)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

// List walks object keys newest first and fetches matching records.
func (b *Backend) List(ctx context.Context, opts auditlog.QueryOptions) ([]*auditlog.Record, error) {
	if b.closed.Load() {
		return nil, auditlog.ErrClosed
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.dir()),
	}
	if !opts.Before.IsZero() {
		// Skip keys at or after Before.
		input.StartAfter = aws.String(b.dir() + auditlog.SortKey(&auditlog.Record{Timestamp: opts.Before}) + "~")
	}

	limit := opts.EffectiveLimit()
	var out []*auditlog.Record
	p := s3.NewListObjectsV2Paginator(b.client, input)
	for p.HasMorePages() && len(out) < limit {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, suffix) {
				continue
			}
			rec, err := b.get(ctx, key)
			if err != nil {
				return nil, err
			}
			if !opts.After.IsZero() && !rec.Timestamp.After(opts.After) {
				return out, nil
			}
			if opts.Matches(rec) {
				out = append(out, rec)
				if len(out) == limit {
					break
				}
			}
		}
	}
	return out, nil
}

func (b *Backend) get(ctx context.Context, key string) (*auditlog.Record, error) {
	obj, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return auditlog.Decode(data)
}

// Count lists all record keys.
func (b *Backend) Count(ctx context.Context) (int, error) {
	if b.closed.Load() {
		return 0, auditlog.ErrClosed
	}

	n := 0
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.dir()),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("s3 count: %w", err)
		}
		n += len(page.Contents)
	}
	return n, nil
}

// Close marks the backend closed. The S3 client holds no resources.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

