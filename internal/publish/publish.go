// Package publish uploads the rendered calendar to S3 so it can be served
// as a static subscription URL.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"annualcal/internal/config"
	appLog "annualcal/internal/log"
)

const contentType = "text/calendar; charset=utf-8"

// PutObjectAPI is the subset of the S3 client used by Publisher.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Renderer writes a calendar document.
type Renderer interface {
	Write(w io.Writer) error
}

// Publisher renders a calendar and stores it as a single S3 object.
type Publisher struct {
	client PutObjectAPI
	cfg    config.S3Config
}

// New returns a Publisher using client.
func New(client PutObjectAPI, cfg config.S3Config) *Publisher {
	return &Publisher{client: client, cfg: cfg}
}

// NewFromEnvironment builds an S3 client from the default AWS configuration
// chain (environment, shared config files, instance metadata).
func NewFromEnvironment(ctx context.Context, cfg config.S3Config) (*Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(awsCfg), cfg), nil
}

// Result describes a completed upload.
type Result struct {
	Bucket string
	Key    string
	Bytes  int
	ETag   string
}

// Publish renders the calendar fully into memory before uploading, so a
// failed render never replaces the published object.
func (p *Publisher) Publish(ctx context.Context, r Renderer) (Result, error) {
	if p.cfg.Bucket == "" {
		return Result{}, errors.New("publish: s3 bucket is not configured")
	}
	if p.cfg.Key == "" {
		return Result{}, errors.New("publish: s3 key is not configured")
	}

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		return Result{}, fmt.Errorf("publish: render: %w", err)
	}

	req := &s3.PutObjectInput{
		Bucket:        aws.String(p.cfg.Bucket),
		Key:           aws.String(p.cfg.Key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
	}
	if p.cfg.CacheControl != "" {
		req.CacheControl = aws.String(p.cfg.CacheControl)
	}
	out, err := p.client.PutObject(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("publish: put s3://%s/%s: %w", p.cfg.Bucket, p.cfg.Key, err)
	}

	res := Result{Bucket: p.cfg.Bucket, Key: p.cfg.Key, Bytes: buf.Len()}
	if out != nil {
		res.ETag = aws.ToString(out.ETag)
	}
	appLog.Info("calendar published", "bucket", res.Bucket, "key", res.Key, "bytes", res.Bytes, "etag", res.ETag)
	return res, nil
}
