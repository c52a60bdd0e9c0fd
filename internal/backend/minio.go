package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/tags"

	"github.com/azamatb/objbrowse/internal/catalog"
)

const presignExpiry = 15 * time.Minute

// visibilityTag carries the public/private marker, since object ACLs are
// not exposed through the client API.
const visibilityTag = "visibility"

// MinIO adapts a minio client to the Client boundary.
type MinIO struct {
	client *minio.Client
	region string
}

// NewMinIO wraps an established minio client.
func NewMinIO(client *minio.Client, region string) *MinIO {
	return &MinIO{client: client, region: region}
}

func (m *MinIO) ListBuckets(ctx context.Context) ([]catalog.Bucket, error) {
	infos, err := m.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	buckets := make([]catalog.Bucket, 0, len(infos))
	for _, info := range infos {
		buckets = append(buckets, catalog.Bucket{
			Name:         info.Name,
			CreationDate: info.CreationDate,
		})
	}
	return buckets, nil
}

func (m *MinIO) CreateBucket(ctx context.Context, name string) error {
	exists, err := m.client.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", name, err)
	}
	if exists {
		return ErrBucketExists
	}
	if err := m.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", name, err)
	}
	return nil
}

func (m *MinIO) DeleteBucket(ctx context.Context, name string) error {
	if err := m.client.RemoveBucket(ctx, name); err != nil {
		return fmt.Errorf("delete bucket %q: %w", name, err)
	}
	return nil
}

func (m *MinIO) ListObjects(ctx context.Context, bucket, prefix string) ([]catalog.StoredItem, error) {
	return m.collect(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}, "")
}

func (m *MinIO) SearchObjects(ctx context.Context, bucket, term string) ([]catalog.StoredItem, error) {
	// bucket-scoped: walk the whole key space and match client-side
	return m.collect(ctx, bucket, minio.ListObjectsOptions{Recursive: true}, strings.ToLower(term))
}

func (m *MinIO) collect(ctx context.Context, bucket string, opts minio.ListObjectsOptions, needle string) ([]catalog.StoredItem, error) {
	items := []catalog.StoredItem{}
	for info := range m.client.ListObjects(ctx, bucket, opts) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects %s: %w", bucket, info.Err)
		}
		if needle != "" && !strings.Contains(strings.ToLower(info.Key), needle) {
			continue
		}
		items = append(items, objectToItem(info))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (m *MinIO) UploadObject(ctx context.Context, bucket, key, contentType string, data []byte) (catalog.StoredItem, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return catalog.StoredItem{}, fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return catalog.StoredItem{
		Key:          key,
		Type:         catalog.TypeFile,
		Size:         info.Size,
		LastModified: time.Now(),
		ContentType:  contentType,
	}, nil
}

func (m *MinIO) CreateFolder(ctx context.Context, bucket, key string) error {
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("create folder %s/%s: %w", bucket, key, err)
	}
	return nil
}

// RemoveObject deletes the key; folder keys remove everything under the
// prefix, marker included.
func (m *MinIO) RemoveObject(ctx context.Context, bucket, key string) error {
	if !strings.HasSuffix(key, "/") {
		if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %s/%s: %w", bucket, key, err)
		}
		return nil
	}
	for info := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: key, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("list folder %s/%s: %w", bucket, key, info.Err)
		}
		if err := m.client.RemoveObject(ctx, bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %s/%s: %w", bucket, info.Key, err)
		}
	}
	return ctx.Err()
}

func (m *MinIO) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	if strings.HasSuffix(srcKey, "/") {
		return m.copyFolder(ctx, bucket, srcKey, dstKey)
	}
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: bucket, Object: srcKey})
	if err != nil {
		return fmt.Errorf("copy object %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (m *MinIO) copyFolder(ctx context.Context, bucket, srcKey, dstKey string) error {
	for info := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: srcKey, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("list folder %s/%s: %w", bucket, srcKey, info.Err)
		}
		dst := dstKey + strings.TrimPrefix(info.Key, srcKey)
		_, err := m.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: bucket, Object: dst},
			minio.CopySrcOptions{Bucket: bucket, Object: info.Key})
		if err != nil {
			return fmt.Errorf("copy object %s -> %s: %w", info.Key, dst, err)
		}
	}
	return ctx.Err()
}

func (m *MinIO) SetObjectVisibility(ctx context.Context, bucket, key string, public bool) error {
	value := "private"
	if public {
		value = "public"
	}
	return m.TagObject(ctx, bucket, key, map[string]string{visibilityTag: value})
}

// TagObject merges the given tags into the object's existing tag set.
func (m *MinIO) TagObject(ctx context.Context, bucket, key string, tagSet map[string]string) error {
	merged := make(map[string]string, len(tagSet))
	existing, err := m.client.GetObjectTagging(ctx, bucket, key, minio.GetObjectTaggingOptions{})
	if err == nil && existing != nil {
		for k, v := range existing.ToMap() {
			merged[k] = v
		}
	}
	for k, v := range tagSet {
		merged[k] = v
	}

	objectTags, err := tags.NewTags(merged, true)
	if err != nil {
		return fmt.Errorf("build tags for %s/%s: %w", bucket, key, err)
	}
	if err := m.client.PutObjectTagging(ctx, bucket, key, objectTags, minio.PutObjectTaggingOptions{}); err != nil {
		return fmt.Errorf("tag object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinIO) PresignDownload(ctx context.Context, bucket, key string) (string, error) {
	presigned, err := m.client.PresignedGetObject(ctx, bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return presigned.String(), nil
}

func objectToItem(info minio.ObjectInfo) catalog.StoredItem {
	itemType := catalog.TypeFile
	if strings.HasSuffix(info.Key, "/") {
		itemType = catalog.TypeFolder
	}
	return catalog.StoredItem{
		Key:          info.Key,
		Type:         itemType,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}
}
