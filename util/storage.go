// util/storage.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	fpath "path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// StorageBackend is where built databases and their manifests are
// published so that deployed query servers can pick up a new cycle.
type StorageBackend interface {
	List(path string) (map[string]int64, error)
	OpenRead(path string) (io.ReadCloser, error)
	Store(path string, r io.Reader) (int64, error)
	// StoreObject msgpack-encodes and zstd-compresses object.
	StoreObject(path string, object any) (int64, error)
	Delete(path string) error
	Close()
}

type CountingWriter struct {
	io.Writer
	N int64
}

func (w *CountingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.N += int64(n)
	return n, err
}

type SinkWriter struct{}

func (w *SinkWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func encodeObject(w io.Writer, object any) (int64, error) {
	cw := &CountingWriter{Writer: w}
	zw, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.SpeedBestCompression), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return 0, err
	}

	if err := msgpack.NewEncoder(zw).Encode(object); err != nil {
		zw.Close()
		return 0, err
	} else if err := zw.Close(); err != nil {
		return 0, err
	}
	return cw.N, nil
}

///////////////////////////////////////////////////////////////////////////
// LocalBackend

// LocalBackend stores objects as files under a root directory.
type LocalBackend struct {
	root string
}

func MakeLocalBackend(root string) (StorageBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalBackend{root: root}, nil
}

func (l *LocalBackend) full(path string) string {
	return fpath.Join(l.root, fpath.FromSlash(path))
}

func (l *LocalBackend) List(path string) (map[string]int64, error) {
	m := make(map[string]int64)
	err := fs.WalkDir(os.DirFS(l.root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(p, path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		m[p] = info.Size()
		return nil
	})
	return m, err
}

func (l *LocalBackend) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(l.full(path))
}

func (l *LocalBackend) create(path string) (*os.File, error) {
	fn := l.full(path)
	if err := os.MkdirAll(fpath.Dir(fn), 0o755); err != nil {
		return nil, err
	}
	return os.Create(fn)
}

func (l *LocalBackend) Store(path string, r io.Reader) (int64, error) {
	f, err := l.create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

func (l *LocalBackend) StoreObject(path string, object any) (int64, error) {
	f, err := l.create(path)
	if err != nil {
		return 0, err
	}
	n, err := encodeObject(f, object)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

func (l *LocalBackend) Delete(path string) error {
	return os.Remove(l.full(path))
}

func (l *LocalBackend) Close() {}

///////////////////////////////////////////////////////////////////////////
// DryRunBackend

// DryRunBackend forwards reads to another backend (if any) and discards
// writes, reporting the number of bytes that would have been stored.
type DryRunBackend struct {
	g StorageBackend // for read-only operations
}

func MakeDryRunBackend(g StorageBackend) StorageBackend {
	return DryRunBackend{g: g}
}

func (d DryRunBackend) List(path string) (map[string]int64, error) {
	if d.g == nil {
		return map[string]int64{}, nil
	}
	return d.g.List(path)
}

func (d DryRunBackend) OpenRead(path string) (io.ReadCloser, error) {
	if d.g == nil {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return d.g.OpenRead(path)
}

func (d DryRunBackend) Store(path string, r io.Reader) (int64, error) {
	return io.Copy(&SinkWriter{}, r)
}

func (d DryRunBackend) StoreObject(path string, object any) (int64, error) {
	return encodeObject(&SinkWriter{}, object)
}

func (d DryRunBackend) Delete(path string) error { return nil }

func (d DryRunBackend) Close() {
	if d.g != nil {
		d.g.Close()
	}
}

///////////////////////////////////////////////////////////////////////////
// GCSBackend

type GCSBackend struct {
	ctx    context.Context
	client *storage.Client
	bucket *storage.BucketHandle
}

// MakeGCSBackend connects to the named bucket using the service account
// credentials JSON in the APTDB_GCS_CREDENTIALS environment variable.
func MakeGCSBackend(ctx context.Context, bucketName string) (StorageBackend, error) {
	credsJSON := os.Getenv("APTDB_GCS_CREDENTIALS")
	if credsJSON == "" {
		return nil, fmt.Errorf("APTDB_GCS_CREDENTIALS environment variable not set")
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, err
	}

	return &GCSBackend{
		ctx:    ctx,
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

func (g GCSBackend) List(path string) (map[string]int64, error) {
	path = fpath.Clean(path)
	query := storage.Query{
		Projection: storage.ProjectionNoACL,
		Prefix:     path,
	}

	m := make(map[string]int64)
	it := g.bucket.Objects(g.ctx, &query)
	for {
		if obj, err := it.Next(); err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		} else if fpath.Clean(obj.Name) != path { // don't return the root ~folder
			m[obj.Name] = obj.Size
		}
	}

	return m, nil
}

func (g GCSBackend) OpenRead(path string) (io.ReadCloser, error) {
	return g.bucket.Object(path).NewReader(g.ctx)
}

func (g GCSBackend) Store(path string, r io.Reader) (int64, error) {
	objw := g.bucket.Object(path).NewWriter(g.ctx)
	n, err := io.Copy(objw, r)
	if err != nil {
		return n, err
	}
	return n, objw.Close()
}

func (g GCSBackend) StoreObject(path string, object any) (int64, error) {
	objw := g.bucket.Object(path).NewWriter(g.ctx)
	n, err := encodeObject(objw, object)
	if err != nil {
		return n, err
	}
	return n, objw.Close()
}

func (g GCSBackend) Delete(path string) error {
	return g.bucket.Object(path).Delete(g.ctx)
}

func (g GCSBackend) Close() { g.client.Close() }

///////////////////////////////////////////////////////////////////////////
// S3Backend

type S3Backend struct {
	ctx    context.Context
	client *s3.Client
	bucket string
}

// MakeS3Backend connects to the named bucket using the default AWS
// credential chain, unless APTDB_S3_ACCESS_KEY and APTDB_S3_SECRET_KEY
// are set.
func MakeS3Backend(ctx context.Context, bucketName, region string) (StorageBackend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if key, secret := os.Getenv("APTDB_S3_ACCESS_KEY"), os.Getenv("APTDB_S3_SECRET_KEY"); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		ctx:    ctx,
		client: s3.NewFromConfig(cfg),
		bucket: bucketName,
	}, nil
}

func (b *S3Backend) List(path string) (map[string]int64, error) {
	m := make(map[string]int64)
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(path),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(b.ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			m[aws.ToString(obj.Key)] = aws.ToInt64(obj.Size)
		}
	}
	return m, nil
}

func (b *S3Backend) OpenRead(path string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(b.ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// S3 uploads want a seekable body for payload signing, so the data is
// buffered in memory; the artifacts published here are a few megabytes.
func (b *S3Backend) put(path string, data []byte) error {
	_, err := b.client.PutObject(b.ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (b *S3Backend) Store(path string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), b.put(path, data)
}

func (b *S3Backend) StoreObject(path string, object any) (int64, error) {
	var buf bytes.Buffer
	n, err := encodeObject(&buf, object)
	if err != nil {
		return n, err
	}
	return n, b.put(path, buf.Bytes())
}

func (b *S3Backend) Delete(path string) error {
	_, err := b.client.DeleteObject(b.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	return err
}

func (b *S3Backend) Close() {}

// DecodeObject reads an object written by StoreObject.
func DecodeObject(r io.Reader, object any) error {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return err
	}
	defer zr.Close()

	return msgpack.NewDecoder(zr).Decode(object)
}
