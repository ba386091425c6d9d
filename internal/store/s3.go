// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	envAccessKey = "AWS_ACCESS_KEY_ID"
	envSecretKey = "AWS_SECRET_ACCESS_KEY"
)

type (
	// S3Options configure NewS3.
	S3Options struct {
		Bucket string
		Prefix string
		Region string
		// Endpoint selects an S3-compatible service (R2, MinIO) and enables
		// path-style addressing.
		Endpoint string
		// Env supplies static credentials when it holds AWS_ACCESS_KEY_ID and
		// AWS_SECRET_ACCESS_KEY; otherwise the default credential chain is used.
		Env map[string]string
	}

	// S3 stores objects in a bucket under an optional prefix.
	S3 struct {
		Client *s3.Client
		Bucket string
		Prefix string
	}
)

// NewS3 builds an S3 store from opts.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("store bucket is not configured")
	}

	region := opts.Region
	if region == "" {
		region = "auto"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if ak, sk := opts.Env[envAccessKey], opts.Env[envSecretKey]; ak != "" && sk != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ak, sk, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{Client: client, Bucket: opts.Bucket, Prefix: opts.Prefix}, nil
}

// Put uploads body under key.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.key(key)),
		Body:        body,
		ContentType: aws.String(contentType(key)),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.Client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.Bucket, s.key(key), err)
	}
	return nil
}

// Get downloads key. The caller closes the body.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("download s3://%s/%s: %w", s.Bucket, s.key(key), err)
	}
	return out.Body, nil
}

// Delete removes key.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
	})
	return err
}

func (s *S3) key(key string) string {
	return Key(s.Prefix, key)
}
