// Package backend defines the object-store collaborator the browsing engine
// talks to, with a MinIO-backed implementation for production use and an
// in-memory one for tests and demo mode. The engine depends only on the
// state-transition contract, never on timing.
package backend

import (
	"context"
	"errors"

	"github.com/azamatb/objbrowse/internal/catalog"
)

var (
	// ErrBucketNotFound signals an operation against a missing bucket.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrBucketExists signals a create for a name already taken.
	ErrBucketExists = errors.New("bucket already exists")
	// ErrObjectNotFound signals an operation against a missing key.
	ErrObjectNotFound = errors.New("object not found")
)

// Credentials is the opaque configuration blob supplied by the credential
// provider. The engine forwards it to client constructors and never
// inspects or persists its contents.
type Credentials struct {
	Region     string            `json:"region,omitempty"`
	AuthMethod string            `json:"auth_method,omitempty"`
	Secrets    map[string]string `json:"secrets,omitempty"`
}

// Client is the object-store boundary. ListObjects returns every stored key
// under the prefix as a flat list; one-level folder synthesis is the
// catalog's job. Folder marker objects carry a trailing path separator.
type Client interface {
	ListBuckets(ctx context.Context) ([]catalog.Bucket, error)
	CreateBucket(ctx context.Context, name string) error
	DeleteBucket(ctx context.Context, name string) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]catalog.StoredItem, error)
	SearchObjects(ctx context.Context, bucket, term string) ([]catalog.StoredItem, error)

	UploadObject(ctx context.Context, bucket, key, contentType string, data []byte) (catalog.StoredItem, error)
	CreateFolder(ctx context.Context, bucket, key string) error
	RemoveObject(ctx context.Context, bucket, key string) error
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
	SetObjectVisibility(ctx context.Context, bucket, key string, public bool) error
	TagObject(ctx context.Context, bucket, key string, tags map[string]string) error
	PresignDownload(ctx context.Context, bucket, key string) (string, error)
}
