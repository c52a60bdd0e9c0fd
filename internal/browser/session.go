// Package browser owns one logical browsing session: the catalog snapshot,
// navigation position, filter criteria, selection set, and batch/upload
// status, exposed as plain data to the presentation layer. Stale async
// results are discarded by the catalog's load tokens; cancellation is
// silent and never populates the error channel.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/batch"
	"github.com/azamatb/objbrowse/internal/catalog"
	"github.com/azamatb/objbrowse/internal/filter"
	"github.com/azamatb/objbrowse/internal/history"
	"github.com/azamatb/objbrowse/internal/metrics"
	"github.com/azamatb/objbrowse/internal/nav"
	"github.com/azamatb/objbrowse/internal/selection"
	"github.com/azamatb/objbrowse/internal/upload"
)

var (
	// ErrItemNotFound signals an operation on a key absent from the
	// current snapshot.
	ErrItemNotFound = errors.New("item not in current listing")
	// ErrInvalidBucketName rejects bucket names before any backend call.
	ErrInvalidBucketName = errors.New("invalid bucket name")
	// ErrUnknownCategory rejects criteria with unrecognized category tags.
	ErrUnknownCategory = errors.New("unknown file type category")
)

var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// Recorder persists terminal operation outcomes. Implementations may be
// nil; the session then keeps no trail.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) error
}

// Options tune a session's simulated timing and collaborators.
type Options struct {
	UploadStepDelay time.Duration
	UploadPause     time.Duration
	Recorder        Recorder
	Logger          zerolog.Logger
}

// Session is a single browser instance. All state it owns is read through
// snapshot accessors, so the presentation layer never observes a partially
// applied mutation.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	log      zerolog.Logger
	client   backend.Client
	catalog  *catalog.Store
	nav      *nav.Controller
	sel      *selection.Set
	tracker  *batch.Tracker
	executor *batch.Executor
	pipeline *upload.Pipeline
	recorder Recorder

	mu         sync.Mutex
	criteria   filter.Criteria
	lastErr    string
	lastSearch []catalog.StoredItem

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession builds a session over the given backend client.
func NewSession(client backend.Client, opts Options) *Session {
	store := catalog.NewStore(client)
	tracker := batch.NewTracker()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		log:       opts.Logger,
		client:    client,
		catalog:   store,
		nav:       nav.NewController(store),
		sel:       selection.NewSet(),
		tracker:   tracker,
		executor:  batch.NewExecutor(client, store, tracker),
		pipeline:  upload.NewPipeline(client, store, opts.UploadStepDelay, opts.UploadPause),
		recorder:  opts.Recorder,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close cancels in-flight work and drops session state. Leaving selection
// mode clears the selection, and the upload state is reset with it.
func (s *Session) Close() {
	s.cancel()
	s.catalog.Reset()
	s.sel.Clear()
	s.pipeline.Reset()
}

// Context returns the session-scoped context; it ends when the session
// closes, so in-flight loads stop mutating state after teardown.
func (s *Session) Context() context.Context {
	return s.ctx
}

// LoadBuckets refreshes the bucket list.
func (s *Session) LoadBuckets(ctx context.Context) error {
	_, err := s.catalog.LoadBuckets(ctx)
	return s.finishLoad(err)
}

// Refresh reloads the current location: the object listing when a bucket is
// selected, the bucket list otherwise. This is the explicit retry path for
// transient load failures.
func (s *Session) Refresh(ctx context.Context) error {
	bucket := s.nav.Bucket()
	if bucket == "" {
		return s.LoadBuckets(ctx)
	}
	_, err := s.catalog.LoadObjects(ctx, bucket, s.nav.Prefix())
	return s.finishLoad(err)
}

// SelectBucket enters the named bucket, or returns to the bucket list when
// name is empty.
func (s *Session) SelectBucket(ctx context.Context, name string) error {
	return s.finishLoad(s.nav.SelectBucket(ctx, name))
}

// EnterFolder descends into the folder with the given key, which must be
// present in the current snapshot.
func (s *Session) EnterFolder(ctx context.Context, key string) error {
	item, ok := s.findItem(catalog.Ident{Key: key, Type: catalog.TypeFolder})
	if !ok {
		return ErrItemNotFound
	}
	return s.finishLoad(s.nav.EnterFolder(ctx, item))
}

// GoUp pops the navigation history, or deselects the bucket when at the
// root.
func (s *Session) GoUp(ctx context.Context) error {
	return s.finishLoad(s.nav.GoUp(ctx))
}

// NavigateToSegment jumps to a breadcrumb segment of the current path.
func (s *Session) NavigateToSegment(ctx context.Context, segment string) error {
	return s.finishLoad(s.nav.NavigateToSegment(ctx, segment))
}

// SetCriteria replaces the filter criteria. Unknown categories are a
// synchronous validation failure.
func (s *Session) SetCriteria(c filter.Criteria) error {
	for _, cat := range c.Categories {
		if !filter.Known(cat) {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
		}
	}
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()
	return nil
}

// ResetCriteria restores the identity filter.
func (s *Session) ResetCriteria() {
	s.mu.Lock()
	s.criteria = filter.Criteria{}
	s.mu.Unlock()
}

// Criteria returns the active filter criteria.
func (s *Session) Criteria() filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// View is the currently displayed list: the loaded snapshot narrowed by the
// active criteria. The snapshot itself is never mutated by filtering.
func (s *Session) View() []catalog.StoredItem {
	return filter.Apply(s.catalog.Items(), s.Criteria())
}

// Search matches term across the whole selected bucket and narrows the
// result by the active criteria: search first, then filter.
func (s *Session) Search(ctx context.Context, term string) ([]catalog.StoredItem, error) {
	items, err := s.catalog.Search(ctx, s.nav.Bucket(), term)
	if err := s.finishLoad(err); err != nil {
		return nil, err
	}
	if items == nil {
		items = []catalog.StoredItem{}
	}
	s.mu.Lock()
	s.lastSearch = items
	s.mu.Unlock()
	return filter.Apply(items, s.Criteria()), nil
}

// ToggleSelect flips membership of the identified item. The item must be in
// the current snapshot; membership itself survives later filter changes.
func (s *Session) ToggleSelect(id catalog.Ident) error {
	item, ok := s.findItem(id)
	if !ok {
		return ErrItemNotFound
	}
	s.sel.Toggle(item)
	return nil
}

// SelectAll toggles between selecting the whole current view and none.
func (s *Session) SelectAll() {
	s.sel.SelectAll(s.View())
}

// ClearSelection empties the selection, as when leaving selection mode.
func (s *Session) ClearSelection() {
	s.sel.Clear()
}

// Selection returns the selected items.
func (s *Session) Selection() []catalog.StoredItem {
	return s.sel.Items()
}

// BatchStatus returns the live status of the most recent batch operation.
func (s *Session) BatchStatus() batch.Status {
	return s.tracker.Status()
}

// UploadState returns the live upload pipeline snapshot.
func (s *Session) UploadState() upload.State {
	return s.pipeline.State()
}

// ExecuteBatch runs the action against the current selection. Precondition
// failures surface synchronously; everything past the InProgress transition
// lands in the result. A completed operation clears the selection.
func (s *Session) ExecuteBatch(ctx context.Context, action batch.Action, opts batch.Options) (batch.Result, error) {
	bucket := s.nav.Bucket()
	items := s.sel.Items()

	result, err := s.executor.Execute(ctx, bucket, action, items, opts)
	if err != nil {
		return batch.Result{}, err
	}

	metrics.BatchOperations.WithLabelValues(string(action), string(result.Status.State)).Inc()
	s.record(ctx, history.Record{
		SessionID:  s.ID,
		Kind:       history.KindBatch,
		Action:     string(action),
		Status:     string(result.Status.State),
		ItemCount:  result.Details.ItemCount,
		TotalBytes: result.Details.TotalBytes,
		Target:     result.Details.Target,
		Message:    result.Status.Message,
	})

	switch result.Status.State {
	case batch.StateCompleted:
		s.sel.Clear()
		s.log.Info().Str("action", string(action)).Int("items", result.Details.ItemCount).Msg("batch operation completed")
	case batch.StateFailed:
		s.log.Warn().Str("action", string(action)).Str("error", result.Status.Error).Msg("batch operation failed")
	}
	return result, nil
}

// Upload pushes local files to the current bucket and prefix. Per-file
// failures do not halt the queue; cancellation stops it silently.
func (s *Session) Upload(ctx context.Context, files []upload.LocalFile) (upload.Summary, error) {
	bucket := s.nav.Bucket()
	if bucket == "" {
		return upload.Summary{}, catalog.ErrNoBucket
	}

	summary, err := s.pipeline.UploadAll(ctx, bucket, s.nav.Prefix(), files)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, nil
		}
		return summary, err
	}

	var bytes int64
	for _, item := range summary.Items {
		bytes += item.Size
	}
	metrics.UploadedFiles.Add(float64(summary.Succeeded))
	metrics.UploadedBytes.Add(float64(bytes))
	s.record(ctx, history.Record{
		SessionID:  s.ID,
		Kind:       history.KindUpload,
		Action:     "upload",
		Status:     uploadStatus(summary),
		ItemCount:  summary.Succeeded,
		TotalBytes: bytes,
		Message:    fmt.Sprintf("uploaded %d of %d files", summary.Succeeded, summary.Total),
	})
	s.log.Info().Int("succeeded", summary.Succeeded).Int("total", summary.Total).Msg("upload finished")
	return summary, nil
}

// CreateBucket validates the name synchronously, creates the bucket, and
// refreshes the bucket list.
func (s *Session) CreateBucket(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if !bucketNameRe.MatchString(name) {
		return ErrInvalidBucketName
	}
	if err := s.client.CreateBucket(ctx, name); err != nil {
		return err
	}
	return s.LoadBuckets(ctx)
}

// DeleteBucket removes a bucket and refreshes the bucket list.
func (s *Session) DeleteBucket(ctx context.Context, name string) error {
	if err := s.client.DeleteBucket(ctx, name); err != nil {
		return err
	}
	if s.nav.Bucket() == name {
		if err := s.nav.SelectBucket(ctx, ""); err != nil && !silent(err) {
			return err
		}
	}
	return s.LoadBuckets(ctx)
}

// CreateFolder creates a folder entry under the current prefix and appends
// it to the snapshot without a reload.
func (s *Session) CreateFolder(ctx context.Context, name string) error {
	bucket := s.nav.Bucket()
	if bucket == "" {
		return catalog.ErrNoBucket
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid folder name %q", name)
	}

	key := s.nav.Prefix() + name + "/"
	if err := s.client.CreateFolder(ctx, bucket, key); err != nil {
		return err
	}
	s.catalog.ApplyMutation(catalog.MutationAdd, []catalog.StoredItem{{
		Key:          key,
		Type:         catalog.TypeFolder,
		LastModified: time.Now(),
	}})
	return nil
}

// Snapshot is the full session state handed to the presentation layer.
type Snapshot struct {
	ID         uuid.UUID            `json:"id"`
	Buckets    []catalog.Bucket     `json:"buckets"`
	Navigation nav.State            `json:"navigation"`
	Items      []catalog.StoredItem `json:"items"`
	View       []catalog.StoredItem `json:"view"`
	Criteria   filter.Criteria      `json:"criteria"`
	Selection  []catalog.StoredItem `json:"selection"`
	Batch      batch.Status         `json:"batch"`
	Upload     upload.State         `json:"upload"`
	LastError  string               `json:"last_error,omitempty"`
}

// State returns a consistent snapshot of everything the UI renders.
func (s *Session) State() Snapshot {
	items := s.catalog.Items()
	s.mu.Lock()
	criteria := s.criteria
	lastErr := s.lastErr
	s.mu.Unlock()

	return Snapshot{
		ID:         s.ID,
		Buckets:    s.catalog.Buckets(),
		Navigation: s.nav.State(),
		Items:      items,
		View:       filter.Apply(items, criteria),
		Criteria:   criteria,
		Selection:  s.sel.Items(),
		Batch:      s.tracker.Status(),
		Upload:     s.pipeline.State(),
		LastError:  lastErr,
	}
}

// LastError returns the most recent transient load error, empty after a
// successful load.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// finishLoad converts load outcomes into session state. Cancellation and
// superseded loads are silent; failures keep the prior snapshot and set the
// inline error message; success clears it.
func (s *Session) finishLoad(err error) error {
	if err == nil {
		metrics.CatalogLoads.WithLabelValues("success").Inc()
		s.mu.Lock()
		s.lastErr = ""
		s.mu.Unlock()
		return nil
	}
	if silent(err) {
		return nil
	}
	metrics.CatalogLoads.WithLabelValues("error").Inc()
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.log.Warn().Err(err).Msg("catalog load failed")
	return err
}

func silent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, catalog.ErrSuperseded)
}

// findItem resolves an identity against the loaded snapshot, falling back
// to the most recent search results since those are displayable too.
func (s *Session) findItem(id catalog.Ident) (catalog.StoredItem, bool) {
	for _, item := range s.catalog.Items() {
		if item.Ident() == id {
			return item, true
		}
	}
	s.mu.Lock()
	searched := s.lastSearch
	s.mu.Unlock()
	for _, item := range searched {
		if item.Ident() == id {
			return item, true
		}
	}
	return catalog.StoredItem{}, false
}

func (s *Session) record(ctx context.Context, rec history.Record) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.log.Warn().Err(err).Msg("record operation history")
	}
}

func uploadStatus(summary upload.Summary) string {
	if summary.Failed == 0 {
		return string(batch.StateCompleted)
	}
	return string(batch.StateFailed)
}
