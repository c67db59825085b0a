// Package blob stores whole documents under string keys, on the local
// filesystem or in an S3 bucket.
package blob

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when nothing is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Store reads and replaces whole objects.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the object under key. Readers never see a partial object.
	Write(ctx context.Context, key string, data []byte) error
}
