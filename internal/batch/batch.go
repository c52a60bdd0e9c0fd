// Package batch runs bulk actions against a selection of stored items,
// reporting incremental progress and a terminal result. Items are processed
// one at a time; already-processed items are not rolled back when a later
// item fails, mirroring the absence of transactional guarantees in the
// backing store.
package batch

import (
	"errors"
	"fmt"

	"github.com/azamatb/objbrowse/internal/catalog"
)

// Action is one of the supported bulk operations.
type Action string

const (
	ActionDelete      Action = "delete"
	ActionDownload    Action = "download"
	ActionCopy        Action = "copy"
	ActionMove        Action = "move"
	ActionMakePublic  Action = "makePublic"
	ActionMakePrivate Action = "makePrivate"
	ActionAddTags     Action = "addTags"
)

// State names a position in the operation lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Status is the externally visible progress of an operation. Progress is
// 0-100 and non-decreasing; it reaches exactly 100 before the transition
// to Completed, and freezes at its last value on failure.
type Status struct {
	State    State  `json:"state"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// Details summarizes a completed operation.
type Details struct {
	ItemCount  int    `json:"item_count"`
	Files      int    `json:"files"`
	Folders    int    `json:"folders"`
	TotalBytes int64  `json:"total_bytes"`
	Target     string `json:"target,omitempty"`
}

// Result pairs the terminal status with its details.
type Result struct {
	Status  Status  `json:"status"`
	Details Details `json:"details"`
}

// Options carries action-specific parameters.
type Options struct {
	// Target is the destination prefix for copy and move.
	Target string `json:"target,omitempty"`
	// Tags is the tag set for addTags.
	Tags map[string]string `json:"tags,omitempty"`
}

var (
	// ErrNoItems signals an empty selection; rejected before any transition.
	ErrNoItems = errors.New("no items selected")
	// ErrMissingTarget signals copy/move without a destination.
	ErrMissingTarget = errors.New("target destination required")
	// ErrMissingTags signals addTags without tags.
	ErrMissingTags = errors.New("tags required")
)

// UnknownActionError is the terminal failure message for unrecognized
// action tags.
func UnknownActionError(action Action) string {
	return fmt.Sprintf("Unknown action: %s", action)
}

func known(action Action) bool {
	switch action {
	case ActionDelete, ActionDownload, ActionCopy, ActionMove,
		ActionMakePublic, ActionMakePrivate, ActionAddTags:
		return true
	}
	return false
}

func summarize(items []catalog.StoredItem, target string) Details {
	d := Details{ItemCount: len(items), Target: target}
	for _, item := range items {
		if item.IsFolder() {
			d.Folders++
			continue
		}
		d.Files++
		d.TotalBytes += item.Size
	}
	return d
}
