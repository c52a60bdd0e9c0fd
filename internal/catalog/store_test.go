package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadObjectsSynthesizesFolders(t *testing.T) {
	now := time.Now()
	client := &fakeLister{
		objects: []StoredItem{
			{Key: "docs/readme.md", Size: 10, LastModified: now.Add(-2 * time.Hour), ContentType: "text/markdown"},
			{Key: "docs/reports/q1.pdf", Size: 100, LastModified: now.Add(-1 * time.Hour), ContentType: "application/pdf"},
			{Key: "docs/reports/q2.pdf", Size: 200, LastModified: now, ContentType: "application/pdf"},
			{Key: "other/file.txt", Size: 5, LastModified: now},
		},
	}
	store := NewStore(client)

	items, err := store.LoadObjects(context.Background(), "bucket1", "docs/")
	if err != nil {
		t.Fatalf("LoadObjects returned error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 direct children, got %d: %+v", len(items), items)
	}
	folder := items[0]
	if folder.Key != "docs/reports/" || folder.Type != TypeFolder {
		t.Fatalf("expected synthesized folder docs/reports/, got %+v", folder)
	}
	if folder.Size != 0 {
		t.Fatalf("folders report zero size, got %d", folder.Size)
	}
	if !folder.LastModified.Equal(now) {
		t.Fatalf("folder should carry newest child time, got %v", folder.LastModified)
	}
	if items[1].Key != "docs/readme.md" || items[1].Type != TypeFile {
		t.Fatalf("expected file docs/readme.md, got %+v", items[1])
	}
}

func TestLoadObjectsEmptyBucket(t *testing.T) {
	store := NewStore(&fakeLister{})

	items, err := store.LoadObjects(context.Background(), "empty-bucket", "")
	if err != nil {
		t.Fatalf("LoadObjects returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty listing, got %d items", len(items))
	}
}

func TestLoadFailureKeepsPriorSnapshot(t *testing.T) {
	client := &fakeLister{
		objects: []StoredItem{{Key: "a.txt", Size: 1, LastModified: time.Now()}},
	}
	store := NewStore(client)

	if _, err := store.LoadObjects(context.Background(), "bucket1", ""); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	client.err = errors.New("backend down")
	if _, err := store.LoadObjects(context.Background(), "bucket1", ""); err == nil {
		t.Fatal("expected load error")
	}

	items := store.Items()
	if len(items) != 1 || items[0].Key != "a.txt" {
		t.Fatalf("prior snapshot should survive a failed load, got %+v", items)
	}
}

func TestSupersededLoadIsDiscarded(t *testing.T) {
	now := time.Now()
	slow := &fakeLister{objects: []StoredItem{{Key: "stale.txt", LastModified: now}}}
	store := NewStore(slow)

	// start a load, then invalidate it before the result commits
	slow.beforeReturn = func() {
		store.Reset()
	}

	_, err := store.LoadObjects(context.Background(), "bucket1", "")
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if len(store.Items()) != 0 {
		t.Fatalf("stale result must not be applied, got %+v", store.Items())
	}
}

func TestApplyMutationRemoveAndAdd(t *testing.T) {
	now := time.Now()
	client := &fakeLister{objects: []StoredItem{
		{Key: "a.txt", Size: 1, LastModified: now},
		{Key: "b.txt", Size: 2, LastModified: now},
	}}
	store := NewStore(client)
	if _, err := store.LoadObjects(context.Background(), "bucket1", ""); err != nil {
		t.Fatalf("load: %v", err)
	}

	store.ApplyMutation(MutationRemove, []StoredItem{{Key: "a.txt", Type: TypeFile, Size: 1, LastModified: now}})
	items := store.Items()
	if len(items) != 1 || items[0].Key != "b.txt" {
		t.Fatalf("expected only b.txt after removal, got %+v", items)
	}

	store.ApplyMutation(MutationAdd, []StoredItem{{Key: "c.txt", Type: TypeFile, Size: 3, LastModified: now}})
	items = store.Items()
	if len(items) != 2 || items[1].Key != "c.txt" {
		t.Fatalf("expected b.txt then c.txt, got %+v", items)
	}
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	store := NewStore(&fakeLister{})
	results, err := store.Search(context.Background(), "bucket1", "zzz-nonexistent")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", results)
	}
}

// --- fakes ---

type fakeLister struct {
	objects      []StoredItem
	err          error
	beforeReturn func()
}

func (f *fakeLister) ListBuckets(ctx context.Context) ([]Bucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []Bucket{{Name: "bucket1", CreationDate: time.Now()}}, nil
}

func (f *fakeLister) ListObjects(ctx context.Context, bucket, prefix string) ([]StoredItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []StoredItem
	for _, obj := range f.objects {
		if len(obj.Key) >= len(prefix) && obj.Key[:len(prefix)] == prefix {
			out = append(out, obj)
		}
	}
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	return out, nil
}

func (f *fakeLister) SearchObjects(ctx context.Context, bucket, term string) ([]StoredItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}
