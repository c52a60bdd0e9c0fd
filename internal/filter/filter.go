// Package filter narrows catalog listings by composable criteria: file-type
// category, size range, modification date range, and key substring. Criteria
// compose with AND; category membership is OR within the criterion. Folders
// are exempt from type and size filtering but still subject to the substring
// and date criteria.
package filter

import (
	"strings"
	"time"

	"github.com/azamatb/objbrowse/internal/catalog"
)

// Category is a coarse file-type tag matched against MIME content types.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryArchive  Category = "archive"
)

// mimeRule describes a category's MIME membership: any exact match or any
// prefix match qualifies.
type mimeRule struct {
	prefixes []string
	exact    []string
}

var categoryMIME = map[Category]mimeRule{
	CategoryImage: {prefixes: []string{"image/"}},
	CategoryVideo: {prefixes: []string{"video/"}},
	CategoryAudio: {prefixes: []string{"audio/"}},
	CategoryDocument: {
		prefixes: []string{"text/"},
		exact: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/json",
			"application/xml",
		},
	},
	CategoryArchive: {
		exact: []string{
			"application/zip",
			"application/gzip",
			"application/x-tar",
			"application/x-7z-compressed",
			"application/x-rar-compressed",
			"application/x-bzip2",
		},
	},
}

// Known reports whether c is a recognized category tag.
func Known(c Category) bool {
	_, ok := categoryMIME[c]
	return ok
}

// Criteria is the filter input. The zero value restricts nothing.
type Criteria struct {
	Categories []Category `json:"categories,omitempty"`
	// MinSize..MaxSize is inclusive; MaxSize == 0 means unbounded.
	MinSize int64 `json:"min_size,omitempty"`
	MaxSize int64 `json:"max_size,omitempty"`
	// Zero DateStart/DateEnd leave the corresponding bound open.
	DateStart time.Time `json:"date_start,omitempty"`
	DateEnd   time.Time `json:"date_end,omitempty"`
	// Match is a case-insensitive substring of the key.
	Match string `json:"match,omitempty"`
}

// IsZero reports whether the criteria restrict nothing.
func (c Criteria) IsZero() bool {
	return len(c.Categories) == 0 &&
		c.MinSize == 0 && c.MaxSize == 0 &&
		c.DateStart.IsZero() && c.DateEnd.IsZero() &&
		c.Match == ""
}

// Apply returns the items satisfying the criteria. The input slice is never
// mutated; default criteria return the input unchanged.
func Apply(items []catalog.StoredItem, c Criteria) []catalog.StoredItem {
	if c.IsZero() {
		return items
	}

	out := make([]catalog.StoredItem, 0, len(items))
	for _, item := range items {
		if matches(item, c) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item catalog.StoredItem, c Criteria) bool {
	if c.Match != "" && !strings.Contains(strings.ToLower(item.Key), strings.ToLower(c.Match)) {
		return false
	}
	if !c.DateStart.IsZero() && item.LastModified.Before(c.DateStart) {
		return false
	}
	if !c.DateEnd.IsZero() && item.LastModified.After(c.DateEnd) {
		return false
	}
	if item.IsFolder() {
		// type and size criteria do not apply to folders
		return true
	}
	if item.Size < c.MinSize {
		return false
	}
	if c.MaxSize > 0 && item.Size > c.MaxSize {
		return false
	}
	if len(c.Categories) > 0 && !inAnyCategory(item.ContentType, c.Categories) {
		return false
	}
	return true
}

func inAnyCategory(contentType string, categories []Category) bool {
	contentType = strings.ToLower(contentType)
	for _, cat := range categories {
		rule, ok := categoryMIME[cat]
		if !ok {
			continue
		}
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
		}
		for _, exact := range rule.exact {
			if contentType == exact {
				return true
			}
		}
	}
	return false
}
