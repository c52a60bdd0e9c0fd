package batch

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/azamatb/objbrowse/internal/catalog"
)

type objectStore interface {
	RemoveObject(ctx context.Context, bucket, key string) error
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
	SetObjectVisibility(ctx context.Context, bucket, key string, public bool) error
	TagObject(ctx context.Context, bucket, key string, tags map[string]string) error
	PresignDownload(ctx context.Context, bucket, key string) (string, error)
}

type catalogMutator interface {
	ApplyMutation(kind catalog.MutationKind, items []catalog.StoredItem)
}

// Tracker exposes the live status of the executor's current operation.
type Tracker struct {
	mu     sync.Mutex
	status Status
}

// NewTracker starts in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{status: Status{State: StateIdle}}
}

// Status returns the current status snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) set(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Executor applies a bulk action to a selection, one item at a time.
type Executor struct {
	store   objectStore
	catalog catalogMutator
	tracker *Tracker
}

// NewExecutor builds an executor reporting through the given tracker.
func NewExecutor(store objectStore, cat catalogMutator, tracker *Tracker) *Executor {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Executor{store: store, catalog: cat, tracker: tracker}
}

// Tracker returns the executor's status tracker.
func (e *Executor) Tracker() *Tracker {
	return e.tracker
}

// Execute runs the action against the items. Precondition failures (empty
// selection, missing target or tags) are returned as errors before any
// state transition. Everything after the transition to InProgress lands in
// the returned Result, including mid-operation failures: those freeze
// progress at its last value and are not rolled back.
func (e *Executor) Execute(ctx context.Context, bucket string, action Action, items []catalog.StoredItem, opts Options) (Result, error) {
	if !known(action) {
		// unknown tags go straight to Failed without touching progress
		status := Status{
			State:   StateFailed,
			Message: UnknownActionError(action),
			Error:   UnknownActionError(action),
		}
		e.tracker.set(status)
		return Result{Status: status}, nil
	}
	if len(items) == 0 {
		return Result{}, ErrNoItems
	}
	if (action == ActionCopy || action == ActionMove) && strings.TrimSpace(opts.Target) == "" {
		return Result{}, ErrMissingTarget
	}
	if action == ActionAddTags && len(opts.Tags) == 0 {
		return Result{}, ErrMissingTags
	}

	total := len(items)
	status := Status{
		State:    StateInProgress,
		Progress: 0,
		Message:  fmt.Sprintf("%s: 0 of %d items", action, total),
	}
	e.tracker.set(status)

	for i, item := range items {
		if err := e.applyToItem(ctx, bucket, action, item, opts); err != nil {
			status.State = StateFailed
			status.Error = err.Error()
			status.Message = fmt.Sprintf("%s failed on %s: %v", action, item.Key, err)
			e.tracker.set(status)
			return Result{Status: status, Details: summarize(items[:i], opts.Target)}, nil
		}
		status.Progress = int(math.Round(float64(i+1) / float64(total) * 100))
		status.Message = fmt.Sprintf("%s: %d of %d items", action, i+1, total)
		e.tracker.set(status)
	}

	switch action {
	case ActionDelete, ActionMove:
		if e.catalog != nil {
			e.catalog.ApplyMutation(catalog.MutationRemove, items)
		}
	}

	details := summarize(items, opts.Target)
	status.State = StateCompleted
	status.Progress = 100
	status.Message = fmt.Sprintf("%s completed: %d items (%s)",
		action, details.ItemCount, humanize.Bytes(uint64(details.TotalBytes)))
	e.tracker.set(status)

	return Result{Status: status, Details: details}, nil
}

func (e *Executor) applyToItem(ctx context.Context, bucket string, action Action, item catalog.StoredItem, opts Options) error {
	switch action {
	case ActionDelete:
		return e.store.RemoveObject(ctx, bucket, item.Key)
	case ActionDownload:
		_, err := e.store.PresignDownload(ctx, bucket, item.Key)
		return err
	case ActionCopy:
		return e.store.CopyObject(ctx, bucket, item.Key, destinationKey(opts.Target, item))
	case ActionMove:
		if err := e.store.CopyObject(ctx, bucket, item.Key, destinationKey(opts.Target, item)); err != nil {
			return err
		}
		return e.store.RemoveObject(ctx, bucket, item.Key)
	case ActionMakePublic:
		return e.store.SetObjectVisibility(ctx, bucket, item.Key, true)
	case ActionMakePrivate:
		return e.store.SetObjectVisibility(ctx, bucket, item.Key, false)
	case ActionAddTags:
		return e.store.TagObject(ctx, bucket, item.Key, opts.Tags)
	}
	return fmt.Errorf("unhandled action %q", action)
}

// destinationKey joins the target prefix with the item's base name,
// preserving the trailing separator for folders.
func destinationKey(target string, item catalog.StoredItem) string {
	target = strings.TrimSpace(target)
	if target != "" && !strings.HasSuffix(target, "/") {
		target += "/"
	}
	key := target + item.Name()
	if item.IsFolder() {
		key += "/"
	}
	return key
}
