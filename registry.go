package storagekit

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"weak"

	"github.com/google/uuid"
)

// Token correlates an issued permission request with its outcome. It names
// an arena slot and the slot's generation at registration time, so a token
// stops matching as soon as its registration is consumed or dropped.
type Token struct {
	slot uint32
	gen  uint32
}

// Uint64 packs the token for transports that carry a single integer.
func (t Token) Uint64() uint64 {
	return uint64(t.gen)<<32 | uint64(t.slot)
}

// TokenFromUint64 reverses Uint64.
func TokenFromUint64(v uint64) Token {
	return Token{slot: uint32(v), gen: uint32(v >> 32)}
}

// String returns the token as hex.
func (t Token) String() string {
	return strconv.FormatUint(t.Uint64(), 16)
}

// ParseToken parses the String form.
func ParseToken(s string) (Token, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Token{}, fmt.Errorf("parse token %q: %w", s, err)
	}
	return TokenFromUint64(v), nil
}

// IsZero reports whether t was never issued.
func (t Token) IsZero() bool { return t.gen == 0 }

// registration is one in-flight permission request.
type registration struct {
	token Token
	host  uuid.UUID
	kind  RequestKind
	root  RootHandle
	fn    func(granted bool)
}

type slot struct {
	gen  uint32
	live bool
	reg  registration
}

type hostEntry struct {
	host    weak.Pointer[Host]
	tokens  map[Token]struct{}
	cleanup runtime.Cleanup
}

// Registry holds pending registrations for every host in the process. Slots
// are reused; each reuse bumps the generation.
//
// The registry never keeps a Host alive. A callback that captures its own
// Host does, so callbacks should capture only what they need.
type Registry struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
	hosts map[uuid.UUID]*hostEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hosts: make(map[uuid.UUID]*hostEntry),
	}
}

// register stores reg for host and returns its token.
func (r *Registry) register(host *Host, reg registration) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		idx = uint32(len(r.slots) - 1)
	}

	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	reg.token = Token{slot: idx, gen: s.gen}
	reg.host = host.id
	s.live = true
	s.reg = reg

	entry, ok := r.hosts[host.id]
	if !ok {
		entry = &hostEntry{
			host:   weak.Make(host),
			tokens: make(map[Token]struct{}),
		}
		entry.cleanup = runtime.AddCleanup(host, func(id uuid.UUID) { r.detach(id) }, host.id)
		r.hosts[host.id] = entry
	}
	entry.tokens[reg.token] = struct{}{}

	return reg.token
}

// take consumes the registration for token if it is live and owned by host.
func (r *Registry) take(host *Host, token Token) (registration, bool) {
	if host == nil {
		return registration{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if int(token.slot) >= len(r.slots) {
		return registration{}, false
	}
	s := &r.slots[token.slot]
	if !s.live || s.gen != token.gen || s.reg.host != host.id {
		return registration{}, false
	}
	entry, ok := r.hosts[host.id]
	if !ok || entry.host.Value() != host {
		return registration{}, false
	}

	reg := s.reg
	r.release(token)
	delete(entry.tokens, token)
	return reg, true
}

// cancel drops a registration that never reached the surface.
func (r *Registry) cancel(host *Host, token Token) {
	_, _ = r.take(host, token)
}

// Detach drops every pending registration of host without firing them and
// returns how many were dropped.
func (r *Registry) Detach(host *Host) int {
	if host == nil {
		return 0
	}

	r.mu.Lock()
	entry, ok := r.hosts[host.id]
	r.mu.Unlock()
	if ok {
		entry.cleanup.Stop()
	}
	return r.detach(host.id)
}

func (r *Registry) detach(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.hosts[id]
	if !ok {
		return 0
	}
	for token := range entry.tokens {
		r.release(token)
	}
	delete(r.hosts, id)
	return len(entry.tokens)
}

// Pending returns the number of registrations waiting for host.
func (r *Registry) Pending(host *Host) int {
	if host == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.hosts[host.id]; ok {
		return len(entry.tokens)
	}
	return 0
}

// Hosts returns the number of hosts with an entry in the registry.
func (r *Registry) Hosts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}

// release frees the slot behind token. Must be called with lock held.
func (r *Registry) release(token Token) {
	s := &r.slots[token.slot]
	if !s.live || s.gen != token.gen {
		return
	}
	s.live = false
	s.reg = registration{}
	r.free = append(r.free, token.slot)
}
