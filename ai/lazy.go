package ai

import (
	"context"
	"sync"
)

// Factory builds the client on first use
type Factory func(ctx context.Context) (*Client, error)

// Lazy builds a Client on first use and shares it afterwards. A failed
// build is not cached: the next Get tries again, so a credential supplied
// after startup is picked up without a restart.
type Lazy struct {
	mu      sync.Mutex
	build   Factory
	client  *Client
	lastErr error
}

// NewLazy returns a handle that calls build on the first Get
func NewLazy(build Factory) *Lazy {
	return &Lazy{build: build}
}

// Ready returns a handle that already holds client
func Ready(client *Client) *Lazy {
	return &Lazy{client: client}
}

// Get returns the shared client, building it if needed
func (l *Lazy) Get(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	client, err := l.build(context.WithoutCancel(ctx))
	if err != nil {
		l.lastErr = err
		return nil, err
	}
	l.client, l.lastErr = client, nil
	return client, nil
}

// Peek returns the client if it has already been built successfully
func (l *Lazy) Peek() *Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.client
}

// LastError returns the error of the most recent failed build, or nil once
// a client exists
func (l *Lazy) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
