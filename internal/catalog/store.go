package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrSuperseded is returned when a load finished after a newer load or a
// reset made its result irrelevant. It is not a failure: callers discard
// the result silently instead of applying it out of order.
var ErrSuperseded = errors.New("load superseded")

// MutationKind names an in-place catalog update applied after a successful
// batch operation or upload, avoiding a full reload.
type MutationKind string

const (
	MutationRemove MutationKind = "remove"
	MutationAdd    MutationKind = "add"
)

type lister interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]StoredItem, error)
	SearchObjects(ctx context.Context, bucket, term string) ([]StoredItem, error)
}

// Store holds the in-memory catalog: the known buckets and the currently
// loaded one-level listing for a bucket/prefix pair. Loads that fail or
// that were superseded by a newer load never overwrite the prior snapshot.
type Store struct {
	mu      sync.Mutex
	client  lister
	buckets []Bucket
	bucket  string
	prefix  string
	items   []StoredItem
	token   uint64
}

// NewStore builds a catalog store over the given backend client.
func NewStore(client lister) *Store {
	return &Store{client: client}
}

// LoadBuckets refreshes the bucket list from the backend.
func (s *Store) LoadBuckets(ctx context.Context) ([]Bucket, error) {
	token := s.issueToken()

	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return nil, ErrSuperseded
	}
	s.buckets = buckets
	return append([]Bucket(nil), buckets...), nil
}

// LoadObjects fetches the one-level listing for bucket/prefix and commits
// it as the current snapshot. Folder entries are synthesized from key
// segments lying between the prefix and the next path separator; no tree
// is stored.
func (s *Store) LoadObjects(ctx context.Context, bucket, prefix string) ([]StoredItem, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	token := s.issueToken()

	objects, err := s.client.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err)
	}

	items := directChildren(prefix, objects)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return nil, ErrSuperseded
	}
	s.bucket = bucket
	s.prefix = prefix
	s.items = items
	return append([]StoredItem(nil), items...), nil
}

// Search matches term as a case-insensitive substring of object keys across
// the whole bucket, not just the loaded prefix. The result is not committed
// to the snapshot. No matches yields an empty list, not an error.
func (s *Store) Search(ctx context.Context, bucket, term string) ([]StoredItem, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	items, err := s.client.SearchObjects(ctx, bucket, term)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", bucket, err)
	}
	if items == nil {
		items = []StoredItem{}
	}
	return items, nil
}

// ApplyMutation updates the snapshot in place after a successful batch
// operation or upload so the view reflects the change without a reload.
func (s *Store) ApplyMutation(kind MutationKind, items []StoredItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case MutationRemove:
		gone := make(map[Ident]struct{}, len(items))
		for _, it := range items {
			gone[it.Ident()] = struct{}{}
		}
		kept := s.items[:0:0]
		for _, it := range s.items {
			if _, ok := gone[it.Ident()]; !ok {
				kept = append(kept, it)
			}
		}
		s.items = kept
	case MutationAdd:
		for _, it := range items {
			s.items = upsert(s.items, it)
		}
		sortItems(s.items)
	}
}

// Reset drops the current object snapshot and invalidates in-flight loads.
// Used when the bucket is deselected or the owning session closes.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.bucket = ""
	s.prefix = ""
	s.items = nil
}

// Buckets returns a copy of the known bucket list.
func (s *Store) Buckets() []Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bucket(nil), s.buckets...)
}

// Items returns a copy of the current object snapshot.
func (s *Store) Items() []StoredItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredItem(nil), s.items...)
}

// Location returns the bucket and prefix of the current snapshot.
func (s *Store) Location() (bucket, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bucket, s.prefix
}

func (s *Store) issueToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	return s.token
}

// directChildren reduces a flat recursive key listing to the entries that
// are immediate children of prefix. Keys nested deeper than one level
// collapse into a synthesized folder item for their first segment; the
// folder carries the newest child modification time and zero size.
func directChildren(prefix string, objects []StoredItem) []StoredItem {
	var files []StoredItem
	folders := make(map[string]StoredItem)

	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		rest := obj.Key[len(prefix):]
		if rest == "" {
			// the prefix's own folder marker
			continue
		}
		idx := strings.Index(rest, "/")
		if idx < 0 {
			files = append(files, StoredItem{
				Key:          obj.Key,
				Type:         TypeFile,
				Size:         obj.Size,
				LastModified: obj.LastModified,
				ContentType:  obj.ContentType,
			})
			continue
		}
		folderKey := prefix + rest[:idx+1]
		existing, ok := folders[folderKey]
		if !ok || obj.LastModified.After(existing.LastModified) {
			folders[folderKey] = StoredItem{
				Key:          folderKey,
				Type:         TypeFolder,
				Size:         0,
				LastModified: obj.LastModified,
			}
		}
	}

	items := make([]StoredItem, 0, len(folders)+len(files))
	for _, f := range folders {
		items = append(items, f)
	}
	items = append(items, files...)
	sortItems(items)
	return items
}

func upsert(items []StoredItem, item StoredItem) []StoredItem {
	for i, existing := range items {
		if existing.Ident() == item.Ident() {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// sortItems orders folders before files, each alphabetically by key.
func sortItems(items []StoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type == TypeFolder
		}
		return items[i].Key < items[j].Key
	})
}
