package catalog

import "errors"

// ErrNoBucket signals an object listing was requested without a bucket.
var ErrNoBucket = errors.New("no bucket selected")
