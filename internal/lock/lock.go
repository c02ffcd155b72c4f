// Package lock serializes mutating operations per date key. The backing
// store offers whole-object get/put only, so the full read-mutate-write cycle
// for one ledger must run inside an exclusive region or concurrent writers
// overwrite each other's updates.
package lock

import (
	"context"
	"errors"
)

var ErrBusy = errors.New("ledger is busy")

// Locker grants exclusive access to one key. Acquire blocks up to the
// configured wait bound and returns ErrBusy on timeout; the returned release
// func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
