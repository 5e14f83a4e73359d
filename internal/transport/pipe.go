// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package transport

import (
	"context"
	"sync"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// Server is the isolated side of a Pipe. Serve consumes requests until ctx
// is canceled, writing each response to responses, and closes responses
// before returning.
type Server interface {
	Serve(ctx context.Context, requests <-chan Request, responses chan<- Response)
}

const pipeBuffer = 64

// Pipe is an in-process Boundary: it runs the isolated side's serve loop on
// its own goroutine and connects the two sides with channels. There is no
// shared memory across the pipe, only message passing.
type Pipe struct {
	server    Server
	requests  chan Request
	responses chan Response

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  bool
}

// NewPipe creates a Pipe serving the given isolated side.
func NewPipe(server Server) *Pipe {
	return &Pipe{
		server:    server,
		requests:  make(chan Request, pipeBuffer),
		responses: make(chan Response, pipeBuffer),
	}
}

// Start launches the isolated serve loop.
func (p *Pipe) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return inkerr.New(inkerr.CodeTransportBoundaryClosed, "pipe is closed")
	}
	if p.started {
		return nil
	}

	serveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.started = true

	go p.server.Serve(serveCtx, p.requests, p.responses)
	return nil
}

// Send forwards a request to the isolated side. The requests channel is
// never closed, so a send racing Close lands in the buffer and is simply
// never read.
func (p *Pipe) Send(req Request) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return inkerr.New(inkerr.CodeTransportBoundaryClosed, "pipe is closed")
	}

	p.requests <- req
	return nil
}

// Responses yields the isolated side's responses. Closed by the serve loop
// on shutdown.
func (p *Pipe) Responses() <-chan Response {
	return p.responses
}

// Close shuts the isolated side down. Safe to call more than once.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}
