package penalty

import (
	"context"
	"sync"
)

// poolLocks serializes work per pool identity. Entries are dropped once no
// caller holds or waits for them.
type poolLocks struct {
	mu    sync.Mutex
	locks map[string]*poolLock
}

type poolLock struct {
	sem  chan struct{}
	refs int
}

func newPoolLocks() *poolLocks {
	return &poolLocks{locks: make(map[string]*poolLock)}
}

// acquire blocks until the lock for identity is held or ctx is done.
func (p *poolLocks) acquire(ctx context.Context, identity string) (func(), error) {
	p.mu.Lock()
	l, ok := p.locks[identity]
	if !ok {
		l = &poolLock{sem: make(chan struct{}, 1)}
		p.locks[identity] = l
	}
	l.refs++
	p.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			p.release(identity, l)
		}, nil
	case <-ctx.Done():
		p.release(identity, l)
		return nil, ctx.Err()
	}
}

func (p *poolLocks) release(identity string, l *poolLock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, identity)
	}
}

func (p *poolLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
