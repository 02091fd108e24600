// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checkpoint persists encoded search-tree artifacts — a best
// solution snapshot, or a donated subtree's encoding at debug log level
// — to a pluggable storage backend.
package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Backend writes one named artifact's bytes to durable storage.
type Backend interface {
	Write(ctx context.Context, name string, data []byte) error
}

// FileBackend writes artifacts as files under a local directory.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a FileBackend rooted at dir, creating it if
// it does not already exist.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("checkpoint: create directory %q: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (fb *FileBackend) Write(_ context.Context, name string, data []byte) error {
	path := filepath.Join(fb.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("checkpoint: write %q: %w", path, err)
	}
	return nil
}

// S3Config configures an S3-compatible object store target.
type S3Config struct {
	Endpoint string
	Bucket string
	AccessKey string
	SecretKey string
	Region string
	UsePathStyle bool
}

// S3Backend writes artifacts as objects in an S3-compatible bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend builds an S3Backend from cfg, resolving AWS credentials
// and endpoint the way cc-backend's parquet S3 target does.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("checkpoint: S3 backend: empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: S3 backend: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	return &S3Backend{client: s3.NewFromConfig(awsCfg, opts), bucket: cfg.Bucket}, nil
}

func (sb *S3Backend) Write(ctx context.Context, name string, data []byte) error {
	_, err := sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(sb.bucket),
		Key: aws.String(name),
		Body: bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("checkpoint: S3 backend: put object %q: %w", name, err)
	}
	return nil
}
