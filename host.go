package storagekit

import "github.com/google/uuid"

// Host is the external context permission requests are issued from, such as
// a foreground screen of the host application. Only interactive hosts can
// show a consent flow.
//
// Pending registrations are tied to the Host value: once the host becomes
// unreachable they are dropped without firing.
type Host struct {
	id          uuid.UUID
	name        string
	interactive bool
}

// NewHost creates a host with a fresh identity.
func NewHost(name string, interactive bool) *Host {
	return &Host{
		id:          uuid.New(),
		name:        name,
		interactive: interactive,
	}
}

// ID returns the host identity.
func (h *Host) ID() uuid.UUID { return h.id }

// Name returns the host's label.
func (h *Host) Name() string { return h.name }

// Interactive reports whether the host can show a consent flow.
func (h *Host) Interactive() bool { return h != nil && h.interactive }

func (h *Host) String() string {
	if h == nil {
		return "<nil>"
	}
	return h.name + "/" + h.id.String()
}
