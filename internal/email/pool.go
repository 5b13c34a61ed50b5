package email

import (
	"context"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

// smtpConn is an established SMTP session. *mail.Client satisfies it.
type smtpConn interface {
	Send(messages ...*mail.Msg) error
	Close() error
}

type dialFunc func(ctx context.Context) (smtpConn, error)

type pooledConn struct {
	conn     smtpConn
	sent     int
	lastUsed time.Time
}

// pool bounds concurrent SMTP sessions and recycles each session after
// maxMessages sends.
type pool struct {
	dial        dialFunc
	maxMessages int
	idleTimeout time.Duration
	now         func() time.Time

	slots chan struct{}

	mu     sync.Mutex
	idle   []*pooledConn
	closed bool
}

func newPool(dial dialFunc, maxConns, maxMessages int, idleTimeout time.Duration) *pool {
	return &pool{
		dial:        dial,
		maxMessages: maxMessages,
		idleTimeout: idleTimeout,
		now:         time.Now,
		slots:       make(chan struct{}, maxConns),
	}
}

// acquire blocks until a slot is free, then returns an idle session or dials
// a new one.
func (p *pool) acquire(ctx context.Context) (*pooledConn, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pc, stale, err := p.takeIdle()
	for _, s := range stale {
		_ = s.conn.Close()
	}
	if err != nil {
		<-p.slots
		return nil, err
	}
	if pc != nil {
		return pc, nil
	}

	conn, err := p.dial(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}
	return &pooledConn{conn: conn}, nil
}

func (p *pool) takeIdle() (*pooledConn, []*pooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, ErrDispatcherClosed
	}

	var stale []*pooledConn
	for len(p.idle) > 0 {
		n := len(p.idle) - 1
		pc := p.idle[n]
		p.idle = p.idle[:n]
		if p.idleTimeout > 0 && p.now().Sub(pc.lastUsed) > p.idleTimeout {
			stale = append(stale, pc)
			continue
		}
		return pc, stale, nil
	}
	return nil, stale, nil
}

// release returns a session to the pool. Unhealthy or exhausted sessions
// are closed.
func (p *pool) release(pc *pooledConn, healthy bool) {
	pc.lastUsed = p.now()

	p.mu.Lock()
	reuse := healthy && !p.closed && pc.sent < p.maxMessages
	if reuse {
		p.idle = append(p.idle, pc)
	}
	p.mu.Unlock()

	if !reuse {
		_ = pc.conn.Close()
	}
	<-p.slots
}

// close shuts idle sessions. Sessions in use are closed when released.
func (p *pool) close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	for _, pc := range idle {
		_ = pc.conn.Close()
	}
}

// PoolStats is a point-in-time view of the connection pool.
type PoolStats struct {
	InUse int `json:"in_use"`
	Idle  int `json:"idle"`
	Max   int `json:"max"`
}

func (p *pool) stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{InUse: len(p.slots), Idle: len(p.idle), Max: cap(p.slots)}
}
