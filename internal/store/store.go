// Package store provides the backing object stores that hold ledger blobs.
// All implementations offer whole-object get/put only; uploads are atomic at
// the object level and there is no compare-and-swap.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}
