package cache

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Remote is a shared mirror of the object store.
type Remote interface {
	// Fetch returns the object stored under name. A missing object is
	// reported as (nil, false, nil).
	Fetch(ctx context.Context, name string) ([]byte, bool, error)

	// Store uploads an object.
	Store(ctx context.Context, name string, data []byte) error

	// ReadOnly reports whether Store must not be called.
	ReadOnly() bool
}

func remoteName(id string) string {
	return path.Join("objects", id[:2], id)
}

// S3API is the subset of the S3 client used by S3Remote.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Remote mirrors cache objects in an S3 bucket.
//
// Example usage:
//
//	remote, err := cache.NewS3Remote(ctx, cache.S3Options{Bucket: "build-cache", Prefix: "site/"})
//	c := cache.Open(cache.Options{Dir: ".vbundle-cache", Enabled: true, Remote: remote})
type S3Remote struct {
	client   S3API
	bucket   string
	prefix   string
	readOnly bool
}

// S3Options configures NewS3Remote.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint points the client at an S3-compatible service; path-style
	// addressing is used when it is set.
	Endpoint string

	ReadOnly bool
}

// NewS3Remote creates a remote using the default AWS credential chain.
func NewS3Remote(ctx context.Context, opts S3Options) (*S3Remote, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3RemoteWithClient(client, opts), nil
}

// NewS3RemoteWithClient creates a remote around an existing client.
func NewS3RemoteWithClient(client S3API, opts S3Options) *S3Remote {
	return &S3Remote{
		client:   client,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		readOnly: opts.ReadOnly,
	}
}

// Fetch downloads an object.
func (r *S3Remote) Fetch(ctx context.Context, name string) ([]byte, bool, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.prefix + name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3 get %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("s3 read %s: %w", name, err)
	}
	return data, true, nil
}

// Store uploads an object.
func (r *S3Remote) Store(ctx context.Context, name string, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", name, err)
	}
	return nil
}

// ReadOnly reports whether uploads are disabled.
func (r *S3Remote) ReadOnly() bool {
	return r.readOnly
}
