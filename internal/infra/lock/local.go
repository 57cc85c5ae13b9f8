// Package lock serializes billing work per student.
package lock

import (
	"context"
	"sync"
)

// Local serializes within one process.
type Local struct {
	mu    sync.Mutex
	locks map[uint]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[uint]*entry)}
}

func (l *Local) Lock(ctx context.Context, studentID uint) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[studentID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[studentID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(studentID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(studentID, e)
		})
	}, nil
}

func (l *Local) release(studentID uint, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, studentID)
	}
}
