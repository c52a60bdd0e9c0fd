package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/azamatb/objbrowse/internal/catalog"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
	tags        map[string]string
	public      bool
}

type memBucket struct {
	created time.Time
	objects map[string]*memObject
}

// Memory is an in-memory Client used by tests and demo mode. An optional
// latency is observed before every call, honoring context cancellation, so
// the asynchronous suspension points of a real backend stay observable.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
	latency time.Duration
	now     func() time.Time
}

// NewMemory returns an empty in-memory backend.
func NewMemory(latency time.Duration) *Memory {
	return &Memory{
		buckets: make(map[string]*memBucket),
		latency: latency,
		now:     time.Now,
	}
}

// Seed inserts an object directly, bypassing latency. Test helper.
func (m *Memory) Seed(bucket, key, contentType string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		b = &memBucket{created: m.now(), objects: make(map[string]*memObject)}
		m.buckets[bucket] = b
	}
	b.objects[key] = &memObject{data: data, contentType: contentType, modified: modified}
}

// SeedBucket creates an empty bucket directly. Test helper.
func (m *Memory) SeedBucket(name string, created time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = &memBucket{created: created, objects: make(map[string]*memObject)}
	}
}

func (m *Memory) delay(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Memory) ListBuckets(ctx context.Context) ([]catalog.Bucket, error) {
	if err := m.delay(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]catalog.Bucket, 0, len(m.buckets))
	for name, b := range m.buckets {
		out = append(out, catalog.Bucket{Name: name, CreationDate: b.created})
	}
	sortBuckets(out)
	return out, nil
}

func (m *Memory) CreateBucket(ctx context.Context, name string) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; ok {
		return ErrBucketExists
	}
	m.buckets[name] = &memBucket{created: m.now(), objects: make(map[string]*memObject)}
	return nil
}

func (m *Memory) DeleteBucket(ctx context.Context, name string) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		return ErrBucketNotFound
	}
	delete(m.buckets, name)
	return nil
}

func (m *Memory) ListObjects(ctx context.Context, bucket, prefix string) ([]catalog.StoredItem, error) {
	if err := m.delay(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	items := []catalog.StoredItem{}
	for key, obj := range b.objects {
		if strings.HasPrefix(key, prefix) {
			items = append(items, toItem(key, obj))
		}
	}
	return items, nil
}

func (m *Memory) SearchObjects(ctx context.Context, bucket, term string) ([]catalog.StoredItem, error) {
	if err := m.delay(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	needle := strings.ToLower(term)
	items := []catalog.StoredItem{}
	for key, obj := range b.objects {
		if strings.Contains(strings.ToLower(key), needle) {
			items = append(items, toItem(key, obj))
		}
	}
	return items, nil
}

func (m *Memory) UploadObject(ctx context.Context, bucket, key, contentType string, data []byte) (catalog.StoredItem, error) {
	if err := m.delay(ctx); err != nil {
		return catalog.StoredItem{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return catalog.StoredItem{}, ErrBucketNotFound
	}
	obj := &memObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modified:    m.now(),
	}
	b.objects[key] = obj
	return toItem(key, obj), nil
}

func (m *Memory) CreateFolder(ctx context.Context, bucket, key string) error {
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	_, err := m.UploadObject(ctx, bucket, key, "", nil)
	return err
}

// RemoveObject deletes the key. Folder keys (trailing separator) remove
// everything under the prefix, since a folder is nothing but its children.
func (m *Memory) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return ErrBucketNotFound
	}
	if strings.HasSuffix(key, "/") {
		for k := range b.objects {
			if strings.HasPrefix(k, key) {
				delete(b.objects, k)
			}
		}
		return nil
	}
	if _, ok := b.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

func (m *Memory) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return ErrBucketNotFound
	}
	if strings.HasSuffix(srcKey, "/") {
		copied := false
		for k, obj := range b.objects {
			if strings.HasPrefix(k, srcKey) {
				b.objects[dstKey+strings.TrimPrefix(k, srcKey)] = cloneObject(obj, m.now())
				copied = true
			}
		}
		if !copied {
			return ErrObjectNotFound
		}
		return nil
	}
	obj, ok := b.objects[srcKey]
	if !ok {
		return ErrObjectNotFound
	}
	b.objects[dstKey] = cloneObject(obj, m.now())
	return nil
}

func (m *Memory) SetObjectVisibility(ctx context.Context, bucket, key string, public bool) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.object(bucket, key)
	if err != nil {
		return err
	}
	obj.public = public
	return nil
}

func (m *Memory) TagObject(ctx context.Context, bucket, key string, tags map[string]string) error {
	if err := m.delay(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.object(bucket, key)
	if err != nil {
		return err
	}
	if obj.tags == nil {
		obj.tags = make(map[string]string, len(tags))
	}
	for k, v := range tags {
		obj.tags[k] = v
	}
	return nil
}

func (m *Memory) PresignDownload(ctx context.Context, bucket, key string) (string, error) {
	if err := m.delay(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.object(bucket, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("memory://%s/%s", bucket, key), nil
}

// ObjectTags returns a copy of an object's tag set. Test helper.
func (m *Memory) ObjectTags(bucket, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, err := m.object(bucket, key)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(obj.tags))
	for k, v := range obj.tags {
		out[k] = v
	}
	return out
}

// ObjectPublic reports an object's visibility flag. Test helper.
func (m *Memory) ObjectPublic(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, err := m.object(bucket, key)
	if err != nil {
		return false
	}
	return obj.public
}

func (m *Memory) object(bucket, key string) (*memObject, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return obj, nil
}

func cloneObject(obj *memObject, modified time.Time) *memObject {
	clone := &memObject{
		data:        append([]byte(nil), obj.data...),
		contentType: obj.contentType,
		modified:    modified,
		public:      obj.public,
	}
	if obj.tags != nil {
		clone.tags = make(map[string]string, len(obj.tags))
		for k, v := range obj.tags {
			clone.tags[k] = v
		}
	}
	return clone
}

func toItem(key string, obj *memObject) catalog.StoredItem {
	itemType := catalog.TypeFile
	if strings.HasSuffix(key, "/") {
		itemType = catalog.TypeFolder
	}
	return catalog.StoredItem{
		Key:          key,
		Type:         itemType,
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		ContentType:  obj.contentType,
	}
}

func sortBuckets(buckets []catalog.Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Name < buckets[j].Name
	})
}
