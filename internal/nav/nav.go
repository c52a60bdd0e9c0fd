// Package nav tracks which bucket and prefix the browser is looking at.
// Hierarchy is purely prefix-based: descending into a folder means adopting
// its key as the new prefix, and "up" pops the prefix that was current
// before the most recent descent.
package nav

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/azamatb/objbrowse/internal/catalog"
)

var (
	// ErrNotFolder signals an attempt to enter a non-folder item.
	ErrNotFolder = errors.New("item is not a folder")
	// ErrNoBucket signals a prefix operation with no bucket selected.
	ErrNoBucket = errors.New("no bucket selected")
	// ErrUnknownSegment signals a breadcrumb segment outside the current path.
	ErrUnknownSegment = errors.New("unknown breadcrumb segment")
)

// State is a snapshot of the navigation position. An empty SelectedBucket
// means the view is at the bucket list; an empty CurrentPrefix means the
// bucket root.
type State struct {
	SelectedBucket string   `json:"selected_bucket"`
	CurrentPrefix  string   `json:"current_prefix"`
	PrefixHistory  []string `json:"prefix_history"`
}

// Breadcrumbs splits the current prefix into its path segments.
func (s State) Breadcrumbs() []string {
	if s.CurrentPrefix == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s.CurrentPrefix, "/"), "/")
}

type loader interface {
	LoadBuckets(ctx context.Context) ([]catalog.Bucket, error)
	LoadObjects(ctx context.Context, bucket, prefix string) ([]catalog.StoredItem, error)
}

// Controller owns the navigation state and triggers catalog loads as the
// position changes.
type Controller struct {
	mu      sync.Mutex
	bucket  string
	prefix  string
	history []string
	catalog loader
}

// NewController builds a navigation controller over the catalog store.
func NewController(catalog loader) *Controller {
	return &Controller{catalog: catalog}
}

// SelectBucket enters the named bucket at its root, clearing any prefix
// history. The empty string deselects the bucket and returns the view to
// the bucket list.
func (c *Controller) SelectBucket(ctx context.Context, name string) error {
	c.mu.Lock()
	c.bucket = name
	c.prefix = ""
	c.history = nil
	c.mu.Unlock()

	if name == "" {
		_, err := c.catalog.LoadBuckets(ctx)
		return err
	}
	_, err := c.catalog.LoadObjects(ctx, name, "")
	return err
}

// EnterFolder descends into the folder item. The current prefix is pushed
// onto the history stack first, but only when non-empty: the bucket root
// is not a history entry.
func (c *Controller) EnterFolder(ctx context.Context, item catalog.StoredItem) error {
	if item.Type != catalog.TypeFolder {
		return ErrNotFolder
	}

	c.mu.Lock()
	if c.bucket == "" {
		c.mu.Unlock()
		return ErrNoBucket
	}
	if c.prefix != "" {
		c.history = append(c.history, c.prefix)
	}
	c.prefix = item.Key
	bucket, prefix := c.bucket, c.prefix
	c.mu.Unlock()

	_, err := c.catalog.LoadObjects(ctx, bucket, prefix)
	return err
}

// GoUp pops the most recent prefix and reloads it. An empty history with a
// non-empty prefix means the descent started at the bucket root, so up lands
// there. Only at the root itself does up deselect the bucket: "up" from the
// bucket root lands on the bucket list, collapsing the two levels into one
// control.
func (c *Controller) GoUp(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case len(c.history) > 0:
		c.prefix = c.history[len(c.history)-1]
		c.history = c.history[:len(c.history)-1]
	case c.prefix != "":
		c.prefix = ""
	default:
		c.mu.Unlock()
		return c.SelectBucket(ctx, "")
	}
	bucket, prefix := c.bucket, c.prefix
	c.mu.Unlock()

	_, err := c.catalog.LoadObjects(ctx, bucket, prefix)
	return err
}

// NavigateToSegment jumps to the cumulative prefix ending at the named
// breadcrumb segment of the current path. The prefix that was current
// before the jump is pushed onto history so GoUp returns to it.
func (c *Controller) NavigateToSegment(ctx context.Context, segment string) error {
	c.mu.Lock()
	if c.bucket == "" {
		c.mu.Unlock()
		return ErrNoBucket
	}

	crumbs := State{CurrentPrefix: c.prefix}.Breadcrumbs()
	target := ""
	found := false
	for _, seg := range crumbs {
		target += seg + "/"
		if seg == segment {
			found = true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return ErrUnknownSegment
	}
	if c.prefix != "" && c.prefix != target {
		c.history = append(c.history, c.prefix)
	}
	c.prefix = target
	bucket, prefix := c.bucket, c.prefix
	c.mu.Unlock()

	_, err := c.catalog.LoadObjects(ctx, bucket, prefix)
	return err
}

// State returns a snapshot of the current position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SelectedBucket: c.bucket,
		CurrentPrefix:  c.prefix,
		PrefixHistory:  append([]string(nil), c.history...),
	}
}

// Bucket returns the selected bucket name, empty when at the bucket list.
func (c *Controller) Bucket() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bucket
}

// Prefix returns the current prefix.
func (c *Controller) Prefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefix
}
