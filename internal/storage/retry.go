package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// ErrLocked is returned when another process keeps the vault file open
// for longer than the retry budget.
var ErrLocked = errors.New("vault file is locked by another process")

// BackOffOpts bounds the wait for the vault file lock.
type BackOffOpts struct {
	LockTimeout     time.Duration // per attempt, passed to bbolt
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultBackOffOpts is used by Open.
var DefaultBackOffOpts = BackOffOpts{
	LockTimeout:     200 * time.Millisecond,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  5 * time.Second,
}

func (o BackOffOpts) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialInterval
	b.MaxInterval = o.MaxInterval
	b.MaxElapsedTime = o.MaxElapsedTime
	return b
}

// openBolt opens path, retrying with exponential backoff while the file
// lock is held elsewhere. Other errors are returned immediately.
func openBolt(path string, opts BackOffOpts) (*bolt.DB, error) {
	b := opts.newBackOff()
	b.Reset()
	for {
		db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.LockTimeout})
		if err == nil {
			return db, nil
		}
		if !errors.Is(err, berrors.ErrTimeout) {
			return nil, err
		}

		next := b.NextBackOff()
		if next == backoff.Stop {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		time.Sleep(next)
	}
}
