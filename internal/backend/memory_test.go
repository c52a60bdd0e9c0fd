package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seededMemory() *Memory {
	m := NewMemory(0)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SeedBucket("media", now)
	m.Seed("media", "readme.md", "text/markdown", []byte("# hi"), now)
	m.Seed("media", "photos/cat.png", "image/png", []byte("png"), now)
	m.Seed("media", "photos/dog.png", "image/png", []byte("png"), now)
	m.Seed("media", "docs/q1.pdf", "application/pdf", []byte("pdf"), now)
	return m
}

func TestListBucketsSorted(t *testing.T) {
	m := NewMemory(0)
	m.SeedBucket("zeta", time.Now())
	m.SeedBucket("alpha", time.Now())

	buckets, err := m.ListBuckets(context.Background())
	if err != nil {
		t.Fatalf("ListBuckets: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Name != "alpha" || buckets[1].Name != "zeta" {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestCreateBucketRejectsDuplicate(t *testing.T) {
	m := NewMemory(0)
	if err := m.CreateBucket(context.Background(), "data"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := m.CreateBucket(context.Background(), "data"); !errors.Is(err, ErrBucketExists) {
		t.Fatalf("expected ErrBucketExists, got %v", err)
	}
}

func TestListObjectsByPrefix(t *testing.T) {
	m := seededMemory()

	items, err := m.ListObjects(context.Background(), "media", "photos/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the two photos, got %v", items)
	}
	for _, it := range items {
		if it.Type != "file" {
			t.Fatalf("expected file items, got %+v", it)
		}
	}
}

func TestListObjectsUnknownBucket(t *testing.T) {
	m := NewMemory(0)
	if _, err := m.ListObjects(context.Background(), "nope", ""); !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestSearchObjectsCaseInsensitive(t *testing.T) {
	m := seededMemory()

	items, err := m.SearchObjects(context.Background(), "media", "CAT")
	if err != nil {
		t.Fatalf("SearchObjects: %v", err)
	}
	if len(items) != 1 || items[0].Key != "photos/cat.png" {
		t.Fatalf("unexpected search result %v", items)
	}
}

func TestRemoveFolderDeletesSubtree(t *testing.T) {
	m := seededMemory()

	if err := m.RemoveObject(context.Background(), "media", "photos/"); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	items, err := m.ListObjects(context.Background(), "media", "")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	for _, it := range items {
		if it.Key == "photos/cat.png" || it.Key == "photos/dog.png" {
			t.Fatalf("folder contents survived removal: %v", items)
		}
	}
	if len(items) != 2 {
		t.Fatalf("siblings must survive, got %v", items)
	}
}

func TestCopyFolderClonesChildren(t *testing.T) {
	m := seededMemory()

	if err := m.CopyObject(context.Background(), "media", "photos/", "backup/photos/"); err != nil {
		t.Fatalf("CopyObject: %v", err)
	}
	items, err := m.ListObjects(context.Background(), "media", "backup/photos/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected copied children, got %v", items)
	}
	// source untouched
	src, _ := m.ListObjects(context.Background(), "media", "photos/")
	if len(src) != 2 {
		t.Fatalf("copy must not move the source, got %v", src)
	}
}

func TestCopyMissingObject(t *testing.T) {
	m := seededMemory()
	err := m.CopyObject(context.Background(), "media", "ghost.txt", "copy.txt")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestTagObjectMerges(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	if err := m.TagObject(ctx, "media", "readme.md", map[string]string{"team": "infra"}); err != nil {
		t.Fatalf("TagObject: %v", err)
	}
	if err := m.TagObject(ctx, "media", "readme.md", map[string]string{"env": "prod"}); err != nil {
		t.Fatalf("TagObject: %v", err)
	}

	tags := m.ObjectTags("media", "readme.md")
	if tags["team"] != "infra" || tags["env"] != "prod" {
		t.Fatalf("tags must merge, got %v", tags)
	}
}

func TestVisibilityToggle(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	if err := m.SetObjectVisibility(ctx, "media", "readme.md", true); err != nil {
		t.Fatalf("SetObjectVisibility: %v", err)
	}
	if !m.ObjectPublic("media", "readme.md") {
		t.Fatal("object should be public")
	}
	if err := m.SetObjectVisibility(ctx, "media", "readme.md", false); err != nil {
		t.Fatalf("SetObjectVisibility: %v", err)
	}
	if m.ObjectPublic("media", "readme.md") {
		t.Fatal("object should be private again")
	}
}

func TestPresignDownload(t *testing.T) {
	m := seededMemory()

	url, err := m.PresignDownload(context.Background(), "media", "readme.md")
	if err != nil {
		t.Fatalf("PresignDownload: %v", err)
	}
	if url != "memory://media/readme.md" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestLatencyHonorsCancellation(t *testing.T) {
	m := NewMemory(50 * time.Millisecond)
	m.SeedBucket("data", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.ListBuckets(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCreateFolderNormalizesKey(t *testing.T) {
	m := seededMemory()

	if err := m.CreateFolder(context.Background(), "media", "archive"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	items, err := m.ListObjects(context.Background(), "media", "archive/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(items) != 1 || items[0].Key != "archive/" || items[0].Type != "folder" {
		t.Fatalf("expected folder marker, got %v", items)
	}
}
