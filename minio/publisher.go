// Package minio mirrors published snapshots into S3-compatible object
// storage.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/fwojciec/docindex"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey docindex.Credential
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	UseSSL bool
}

// Ensure Publisher implements docindex.Publisher at compile time.
var _ docindex.Publisher = (*Publisher)(nil)

// Publisher uploads every file of a publication as one object. Object PUTs
// are atomic, so readers of the bucket never see a partial document.
type Publisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	mu    sync.Mutex
	ready bool
}

// NewPublisher validates cfg and creates the S3 client. No request is made
// until the first publication.
func NewPublisher(cfg Config) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "s3 endpoint required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "s3 bucket required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	if access == "" || !cfg.SecretKey.IsSet() {
		return nil, docindex.Errorf(docindex.EINVALID, "s3 access key and secret key required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Publisher{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Publish uploads the files in order, creating the bucket on first use.
func (p *Publisher) Publish(ctx context.Context, pub *docindex.Publication) error {
	if err := p.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", p.bucket, err)
	}

	for _, f := range pub.Files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		_, err := p.client.PutObject(ctx, p.bucket, p.ObjectKey(f.Name), bytes.NewReader(f.Data), int64(len(f.Data)), minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "no-cache",
			UserMetadata: map[string]string{"Snapshot-Digest": pub.Meta.Digest},
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", f.Name, err)
		}
	}
	return nil
}

// ObjectKey returns the key a published file is stored under.
func (p *Publisher) ObjectKey(name string) string {
	name = strings.TrimLeft(name, "/")
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// ensureBucket creates the bucket once. A failed attempt is retried on the
// next publication.
func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return err
		}
	}
	p.ready = true
	return nil
}
