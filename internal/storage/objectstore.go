// Package storage reads and writes the pipeline's raw and processed
// artifacts in S3-compatible object storage under deterministic,
// date-partitioned keys. Overwrite is the idempotency mechanism: re-running
// the pipeline for the same (city, date) is safe.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"github.com/weatherpipe/weatherpipe/internal/metrics"
	"github.com/weatherpipe/weatherpipe/internal/transform"
)

var (
	// ErrNotFound is returned when no object exists at the derived key.
	ErrNotFound = errors.New("object not found")
	// ErrCorruptData is returned when a raw object exists but is not valid JSON.
	ErrCorruptData = errors.New("object is not valid JSON")
)

// Options configures the object store adapter.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Keys      Keys
}

// ObjectStore is the MinIO-backed adapter for raw and processed artifacts.
type ObjectStore struct {
	client *minio.Client
	bucket string
	keys   Keys
}

// New connects to object storage and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		log.Infof("created bucket %s", opts.Bucket)
	}

	return &ObjectStore{client: client, bucket: opts.Bucket, keys: opts.Keys}, nil
}

// WriteRaw pretty-prints the payload and overwrites the raw key for
// (city, date). The indentation costs a little storage but keeps archived
// responses human-inspectable. Returns the key written.
func (s *ObjectStore) WriteRaw(ctx context.Context, cityName string, date time.Time, raw []byte) (string, error) {
	key := s.keys.Raw(cityName, date)

	pretty, err := PrettyJSON(raw)
	if err != nil {
		return "", fmt.Errorf("serialize raw payload for %s: %w", cityName, err)
	}

	if err := s.put(ctx, key, pretty, "application/json"); err != nil {
		return "", err
	}

	log.Infof("raw JSON written to s3://%s/%s", s.bucket, key)
	return key, nil
}

// ReadRaw fetches and returns the raw object for (city, date). Fails with
// ErrNotFound when the key does not exist and ErrCorruptData when the body
// is not valid JSON.
func (s *ObjectStore) ReadRaw(ctx context.Context, cityName string, date time.Time) ([]byte, error) {
	key := s.keys.Raw(cityName, date)
	log.Infof("reading raw JSON from s3://%s/%s", s.bucket, key)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("get", "failure").Inc()
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("get", "failure").Inc()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	metrics.StorageOperationsTotal.WithLabelValues("get", "success").Inc()

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrCorruptData, key)
	}
	return data, nil
}

// WriteProcessed serializes the table as CSV fully in memory and overwrites
// the processed key for (city, date). Returns the key written.
func (s *ObjectStore) WriteProcessed(ctx context.Context, cityName string, date time.Time, table *transform.Table) (string, error) {
	key := s.keys.Processed(cityName, date)

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("serialize CSV for %s: %w", cityName, err)
	}

	if err := s.put(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return "", err
	}

	log.Infof("processed CSV written to s3://%s/%s (%d rows)", s.bucket, key, table.RowCount())
	return key, nil
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("put", "failure").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}
	metrics.StorageOperationsTotal.WithLabelValues("put", "success").Inc()
	return nil
}

// PrettyJSON re-indents a JSON document without reordering its keys.
func PrettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
