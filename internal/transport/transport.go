// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// DefaultCallTimeout bounds how long a caller waits for a response before
// the call rejects. The extension's work is not terminated on timeout; only
// the caller's wait is abandoned.
const DefaultCallTimeout = 10 * time.Second

// Boundary is the isolation primitive the transport speaks over. It is
// swappable: the provided implementation is an in-process pipe, but any
// channel-shaped boundary (process, socket) satisfies it.
type Boundary interface {
	// Start establishes the boundary. Called lazily on the first Call.
	Start(ctx context.Context) error
	// Send forwards a request to the isolated side.
	Send(req Request) error
	// Responses yields responses from the isolated side. The channel closes
	// when the boundary shuts down or crashes.
	Responses() <-chan Response
	// Close tears the boundary down.
	Close() error
}

// Transport correlates requests to responses by id and applies a per-call
// timeout. Multiple calls may be in flight concurrently; completion order
// is unrelated to issue order.
type Transport struct {
	boundary Boundary
	timeout  time.Duration
	logger   *slog.Logger

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Response
	started bool
	closed  bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets the transport's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a Transport over the given boundary. The boundary is not
// established until the first Call.
func New(boundary Boundary, opts ...Option) *Transport {
	t := &Transport{
		boundary: boundary,
		timeout:  DefaultCallTimeout,
		logger:   slog.Default(),
		pending:  make(map[uint64]chan Response),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call sends msg across the boundary and blocks until the matching response
// arrives, the per-call timeout fires, or ctx is canceled — whichever is
// first. Error-status responses reject the call with the carried message.
func (t *Transport) Call(ctx context.Context, msg Message) (Response, error) {
	if err := t.ensureStarted(ctx); err != nil {
		return Response{}, err
	}

	id := t.nextID.Add(1)
	ch := make(chan Response, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Response{}, inkerr.Errorf(inkerr.CodeTransportBoundaryClosed,
			"boundary is closed; dropping %s call", msg.Kind())
	}
	t.pending[id] = ch
	t.mu.Unlock()

	if err := t.boundary.Send(Request{ID: id, Msg: msg}); err != nil {
		t.removePending(id)
		return Response{}, inkerr.Wrapf(err, inkerr.CodeTransportSendFailure,
			"sending %s request %d", msg.Kind(), id)
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, inkerr.Errorf(inkerr.CodeTransportBoundaryClosed,
				"boundary closed with %s call %d in flight", msg.Kind(), id)
		}
		if resp.Status == StatusError {
			return resp, inkerr.New(inkerr.CodeTransportCallRejected, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		t.removePending(id)
		return Response{}, inkerr.Errorf(inkerr.CodeTransportCallTimeout,
			"%s call %d timed out after %s", msg.Kind(), id, t.timeout)
	case <-ctx.Done():
		t.removePending(id)
		return Response{}, inkerr.Wrapf(ctx.Err(), inkerr.CodeTransportCallRejected,
			"%s call %d canceled", msg.Kind(), id)
	}
}

// Close shuts the boundary down. In-flight calls reject with a
// boundary-closed error.
func (t *Transport) Close() error {
	t.mu.Lock()
	if !t.started || t.closed {
		t.closed = true
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	return t.boundary.Close()
}

// ensureStarted lazily establishes the boundary and starts the response
// dispatch loop.
func (t *Transport) ensureStarted(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return inkerr.New(inkerr.CodeTransportBoundaryClosed, "transport is closed")
	}
	if t.started {
		return nil
	}

	if err := t.boundary.Start(ctx); err != nil {
		return inkerr.Wrap(err, inkerr.CodeTransportSendFailure, "establishing boundary")
	}
	t.started = true
	go t.dispatch()
	return nil
}

// dispatch routes responses to their pending calls. Responses with no
// matching pending entry (late arrivals after a timeout) are dropped. When
// the boundary closes, every pending call is rejected immediately rather
// than left to ride out its timeout.
func (t *Transport) dispatch() {
	for resp := range t.boundary.Responses() {
		t.mu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.mu.Unlock()

		if !ok {
			t.logger.Debug("dropping response with no pending call", "id", resp.ID)
			continue
		}
		ch <- resp
	}

	t.mu.Lock()
	t.closed = true
	orphaned := len(t.pending)
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if orphaned > 0 {
		t.logger.Warn("isolation boundary closed; rejected in-flight calls", "count", orphaned)
	} else {
		t.logger.Debug("isolation boundary closed")
	}
}

func (t *Transport) removePending(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
