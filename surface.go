package storagekit

import (
	"context"
	"errors"
	"sync"
)

// ErrSurfaceBusy is returned when a ChannelSurface has no room for another
// request.
var ErrSurfaceBusy = errors.New("authorization surface busy")

// AuthorizationSurface launches the interactive consent flow. It returns as
// soon as the flow is started; the result comes back later through
// Broker.Deliver carrying the same token.
type AuthorizationSurface interface {
	// RequestTreeAccess asks the user to grant read and write access to root.
	RequestTreeAccess(ctx context.Context, host *Host, token Token, root RootHandle) error

	// RequestStorageAccess asks the user for broad storage access.
	RequestStorageAccess(ctx context.Context, host *Host, token Token) error
}

// Outcome is what the host delivers when a consent flow finishes.
type Outcome struct {
	// Token is the correlation token the request was issued with.
	Token Token

	// Granted reports whether the user confirmed the flow.
	Granted bool

	// Handle is the tree handle the user picked. For tree requests it must
	// equal the requested root for the grant to be accepted.
	Handle string
}

// RequestKind tells a host integration which consent flow to show.
type RequestKind int

const (
	// RequestTree asks for a document tree grant.
	RequestTree RequestKind = iota
	// RequestStorage asks for broad storage access.
	RequestStorage
)

// String returns a string representation of the RequestKind.
func (k RequestKind) String() string {
	switch k {
	case RequestTree:
		return "tree"
	case RequestStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Request is one consent flow a ChannelSurface hands to the host.
type Request struct {
	Kind  RequestKind
	Host  *Host
	Token Token
	Root  RootHandle
}

// ChannelSurface publishes consent requests on a channel. A host
// integration drains Requests, runs the flow and answers through
// Broker.Deliver. Publishing never blocks: when the buffer is full the
// request fails with ErrSurfaceBusy and its registration is dropped.
type ChannelSurface struct {
	mu       sync.RWMutex
	closed   bool
	requests chan Request
}

// NewChannelSurface creates a surface with the given channel buffer.
func NewChannelSurface(buffer int) *ChannelSurface {
	return &ChannelSurface{
		requests: make(chan Request, buffer),
	}
}

// Requests returns the channel requests are published on.
func (s *ChannelSurface) Requests() <-chan Request {
	return s.requests
}

// RequestTreeAccess implements AuthorizationSurface
func (s *ChannelSurface) RequestTreeAccess(ctx context.Context, host *Host, token Token, root RootHandle) error {
	return s.publish(ctx, Request{Kind: RequestTree, Host: host, Token: token, Root: root})
}

// RequestStorageAccess implements AuthorizationSurface
func (s *ChannelSurface) RequestStorageAccess(ctx context.Context, host *Host, token Token) error {
	return s.publish(ctx, Request{Kind: RequestStorage, Host: host, Token: token})
}

// Close stops accepting requests and closes the channel.
func (s *ChannelSurface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.requests)
	}
}

func (s *ChannelSurface) publish(ctx context.Context, req Request) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrNoInteractiveContext
	}

	select {
	case s.requests <- req:
		return nil
	default:
		return ErrSurfaceBusy
	}
}

// unavailableSurface backs the broker when no surface is wired.
type unavailableSurface struct{}

func (unavailableSurface) RequestTreeAccess(context.Context, *Host, Token, RootHandle) error {
	return ErrNoInteractiveContext
}

func (unavailableSurface) RequestStorageAccess(context.Context, *Host, Token) error {
	return ErrNoInteractiveContext
}

var _ AuthorizationSurface = (*ChannelSurface)(nil)
