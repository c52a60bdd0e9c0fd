package catalog

import "time"

// ItemType distinguishes the two kinds of entries a bucket listing can hold.
type ItemType string

const (
	TypeFile   ItemType = "file"
	TypeFolder ItemType = "folder"
)

// Bucket is a top-level container in the object store.
type Bucket struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
}

// StoredItem is a file or folder within a bucket. Folders are not real
// nodes: a folder is a common key prefix ending in a path separator, and
// hierarchy is reconstructed from key strings on demand.
type StoredItem struct {
	Key          string    `json:"key"`
	Type         ItemType  `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
}

// Ident is the composite identity used for selection membership. A file
// and a folder could in principle share a bare name, so the type is part
// of the key.
type Ident struct {
	Key  string   `json:"key"`
	Type ItemType `json:"type"`
}

// Ident returns the item's composite identity.
func (i StoredItem) Ident() Ident {
	return Ident{Key: i.Key, Type: i.Type}
}

// IsFolder reports whether the item is a folder entry.
func (i StoredItem) IsFolder() bool {
	return i.Type == TypeFolder
}

// Name returns the last path segment of the item's key, without the
// trailing separator for folders.
func (i StoredItem) Name() string {
	key := i.Key
	if n := len(key); n > 0 && key[n-1] == '/' {
		key = key[:n-1]
	}
	for idx := len(key) - 1; idx >= 0; idx-- {
		if key[idx] == '/' {
			return key[idx+1:]
		}
	}
	return key
}
