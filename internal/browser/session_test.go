package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/batch"
	"github.com/azamatb/objbrowse/internal/catalog"
	"github.com/azamatb/objbrowse/internal/filter"
	"github.com/azamatb/objbrowse/internal/history"
	"github.com/azamatb/objbrowse/internal/upload"
)

func newTestSession(t *testing.T, rec Recorder) (*Session, *backend.Memory) {
	t.Helper()
	m := backend.NewMemory(0)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SeedBucket("demo", now)
	m.Seed("demo", "readme.md", "text/markdown", []byte("# demo"), now)
	m.Seed("demo", "reports/q1.pdf", "application/pdf", []byte("q1 report"), now)
	m.Seed("demo", "reports/q2.pdf", "application/pdf", []byte("q2 report"), now)
	m.SeedBucket("empty-bucket", now)

	s := NewSession(m, Options{Recorder: rec, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)
	return s, m
}

func keys(items []catalog.StoredItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestSelectBucketListsOneLevel(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}

	view := s.View()
	if len(view) != 2 {
		t.Fatalf("expected folder + file at the root, got %v", keys(view))
	}
	if view[0].Key != "reports/" || !view[0].IsFolder() {
		t.Fatalf("folders sort first, got %v", keys(view))
	}
	if view[1].Key != "readme.md" {
		t.Fatalf("unexpected root listing %v", keys(view))
	}
}

func TestEmptyBucketYieldsEmptyListing(t *testing.T) {
	s, _ := newTestSession(t, nil)

	if err := s.SelectBucket(context.Background(), "empty-bucket"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if view := s.View(); len(view) != 0 {
		t.Fatalf("expected empty listing, got %v", keys(view))
	}
	if s.LastError() != "" {
		t.Fatalf("empty bucket is not an error, got %q", s.LastError())
	}
}

func TestEnterFolderAndGoUp(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.EnterFolder(ctx, "reports/"); err != nil {
		t.Fatalf("EnterFolder: %v", err)
	}
	if got := keys(s.View()); len(got) != 2 || got[0] != "reports/q1.pdf" {
		t.Fatalf("unexpected folder listing %v", got)
	}

	if err := s.GoUp(ctx); err != nil {
		t.Fatalf("GoUp: %v", err)
	}
	state := s.State()
	if state.Navigation.CurrentPrefix != "" || state.Navigation.SelectedBucket != "demo" {
		t.Fatalf("expected bucket root, got %+v", state.Navigation)
	}

	// one more level up leaves the bucket entirely
	if err := s.GoUp(ctx); err != nil {
		t.Fatalf("GoUp: %v", err)
	}
	if s.State().Navigation.SelectedBucket != "" {
		t.Fatal("up from the bucket root must land on the bucket list")
	}
}

func TestEnterFolderRejectsUnknownKey(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.EnterFolder(ctx, "ghost/"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestSearchNoMatchReturnsEmptySlice(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	items, err := s.Search(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("no-match search must return an empty slice, got %v", items)
	}
	// the loaded snapshot is untouched
	if len(s.View()) != 2 {
		t.Fatalf("search must not replace the snapshot, got %v", keys(s.View()))
	}
}

func TestSearchResultsNarrowedByCriteria(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.SetCriteria(filter.Criteria{Categories: []filter.Category{filter.CategoryImage}}); err != nil {
		t.Fatalf("SetCriteria: %v", err)
	}
	items, err := s.Search(ctx, "q1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("criteria must narrow search results, got %v", keys(items))
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	s, _ := newTestSession(t, nil)
	err := s.SetCriteria(filter.Criteria{Categories: []filter.Category{"hologram"}})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadFailureKeepsPriorSnapshot(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	before := keys(s.View())

	err := s.SelectBucket(ctx, "missing")
	if !errors.Is(err, backend.ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
	if s.LastError() == "" {
		t.Fatal("load failure must surface an inline error")
	}
	after := keys(s.View())
	if len(after) != len(before) {
		t.Fatalf("failed load must keep the prior snapshot: %v vs %v", before, after)
	}

	// a successful load clears the inline error
	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if s.LastError() != "" {
		t.Fatalf("successful load must clear the error, got %q", s.LastError())
	}
}

func TestBatchDeleteClearsSelectionAndCatalog(t *testing.T) {
	recorder := &fakeRecorder{}
	s, m := newTestSession(t, recorder)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.ToggleSelect(catalog.Ident{Key: "readme.md", Type: catalog.TypeFile}); err != nil {
		t.Fatalf("ToggleSelect: %v", err)
	}

	result, err := s.ExecuteBatch(ctx, batch.ActionDelete, batch.Options{})
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if result.Status.State != batch.StateCompleted || result.Status.Progress != 100 {
		t.Fatalf("unexpected result %+v", result.Status)
	}
	if len(s.Selection()) != 0 {
		t.Fatal("completed batch must clear the selection")
	}
	for _, k := range keys(s.View()) {
		if k == "readme.md" {
			t.Fatal("deleted item still in the view")
		}
	}
	if _, err := m.PresignDownload(ctx, "demo", "readme.md"); !errors.Is(err, backend.ErrObjectNotFound) {
		t.Fatalf("object should be gone from the store, got %v", err)
	}
	if len(recorder.records) != 1 || recorder.records[0].Kind != history.KindBatch {
		t.Fatalf("expected one batch history record, got %+v", recorder.records)
	}
}

func TestBatchWithEmptySelection(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if _, err := s.ExecuteBatch(ctx, batch.ActionDelete, batch.Options{}); !errors.Is(err, batch.ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestToggleSelectFromSearchResults(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if _, err := s.Search(ctx, "q1"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	// reports/q1.pdf is not in the root snapshot, only in the search results
	if err := s.ToggleSelect(catalog.Ident{Key: "reports/q1.pdf", Type: catalog.TypeFile}); err != nil {
		t.Fatalf("ToggleSelect: %v", err)
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0].Key != "reports/q1.pdf" {
		t.Fatalf("unexpected selection %v", keys(sel))
	}
}

func TestUploadAppendsToCurrentPrefix(t *testing.T) {
	recorder := &fakeRecorder{}
	s, _ := newTestSession(t, recorder)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.EnterFolder(ctx, "reports/"); err != nil {
		t.Fatalf("EnterFolder: %v", err)
	}

	summary, err := s.Upload(ctx, []upload.LocalFile{
		{Name: "q3.pdf", ContentType: "application/pdf", Data: []byte("q3")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	found := false
	for _, k := range keys(s.View()) {
		if k == "reports/q3.pdf" {
			found = true
		}
	}
	if !found {
		t.Fatalf("uploaded file missing from the view: %v", keys(s.View()))
	}
	if len(recorder.records) != 1 || recorder.records[0].Kind != history.KindUpload {
		t.Fatalf("expected one upload history record, got %+v", recorder.records)
	}
}

func TestUploadWithoutBucket(t *testing.T) {
	s, _ := newTestSession(t, nil)
	_, err := s.Upload(context.Background(), []upload.LocalFile{{Name: "a.txt"}})
	if !errors.Is(err, catalog.ErrNoBucket) {
		t.Fatalf("expected ErrNoBucket, got %v", err)
	}
}

func TestCreateBucketValidatesName(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.CreateBucket(ctx, "Bad_Name!"); !errors.Is(err, ErrInvalidBucketName) {
		t.Fatalf("expected ErrInvalidBucketName, got %v", err)
	}
	if err := s.CreateBucket(ctx, "new-bucket"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	found := false
	for _, b := range s.State().Buckets {
		if b.Name == "new-bucket" {
			found = true
		}
	}
	if !found {
		t.Fatal("bucket list not refreshed after create")
	}
}

func TestCreateFolderAppearsWithoutReload(t *testing.T) {
	s, _ := newTestSession(t, nil)
	ctx := context.Background()

	if err := s.SelectBucket(ctx, "demo"); err != nil {
		t.Fatalf("SelectBucket: %v", err)
	}
	if err := s.CreateFolder(ctx, "archive"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	found := false
	for _, it := range s.View() {
		if it.Key == "archive/" && it.IsFolder() {
			found = true
		}
	}
	if !found {
		t.Fatalf("created folder missing from the view: %v", keys(s.View()))
	}
}

func TestCloseCancelsSessionContext(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.Close()
	select {
	case <-s.Context().Done():
	default:
		t.Fatal("session context must end on Close")
	}
	if len(s.Selection()) != 0 || len(s.View()) != 0 {
		t.Fatal("Close must drop session state")
	}
}

type fakeRecorder struct {
	records []history.Record
}

func (f *fakeRecorder) Record(_ context.Context, rec history.Record) error {
	f.records = append(f.records, rec)
	return nil
}
