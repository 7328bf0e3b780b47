package core

import (
	"context"
	"fmt"
	"sync"
)

// Session identifies the business (and optionally the user) an operation runs for.
// It is passed explicitly into every core operation.
type Session struct {
	BusinessID int64
	User       string
}

func (s Session) validate() error {
	if s.BusinessID <= 0 {
		return newValidationError("business_id", "session has no business selected")
	}
	return nil
}

// BusinessLocker serializes mutating operations of one business.
// Operations on different businesses never wait for each other.
type BusinessLocker interface {
	Lock(ctx context.Context, businessID int64) (unlock func(), err error)
}

type localLocker struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

// NewLocalLocker returns an in-process BusinessLocker.
func NewLocalLocker() BusinessLocker {
	return &localLocker{slots: make(map[int64]chan struct{})}
}

func (l *localLocker) Lock(ctx context.Context, businessID int64) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[businessID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[businessID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to lock business %d: %w", businessID, ctx.Err())
	}
}

// lockBusiness validates the session and takes the business lock.
func lockBusiness(ctx context.Context, locker BusinessLocker, sess Session) (func(), error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return locker.Lock(ctx, sess.BusinessID)
}
