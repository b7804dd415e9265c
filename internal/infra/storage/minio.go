package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// ContentType picks the object content type from the key extension.
func ContentType(key string) string {
	switch path.Ext(key) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	case ".sol":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// PutReport implementasi ReportStore
func (s *Store) PutReport(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:        ContentType(key),
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
	if err != nil {
		return "", fmt.Errorf("put report %s: %w", key, err)
	}

	// URL publik (jika bucket public), kalau private pakai Presign
	return ObjectURL(s.client.EndpointURL(), s.bucketName, key), nil
}

// Presign returns a time limited download link for a private bucket.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, ttl, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ObjectURL builds the path-style URL of an object.
func ObjectURL(endpoint *url.URL, bucket, key string) string {
	u := url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/" + path.Join(bucket, key)}
	return u.String()
}
