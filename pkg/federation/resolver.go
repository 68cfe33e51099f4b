package federation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"articlesync/pkg/types"
)

// ErrUnknownInstance is returned by PeerDirectory for instances it does not
// federate with.
var ErrUnknownInstance = errors.New("unknown instance")

// PeerDirectory resolves instances from the configured set of peers, keyed by
// canonical host.
type PeerDirectory struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewPeerDirectory indexes peers by domain. Peers with malformed identities
// are rejected.
func NewPeerDirectory(peers []Peer) (*PeerDirectory, error) {
	d := &PeerDirectory{peers: make(map[string]Peer, len(peers))}
	for _, p := range peers {
		if err := d.Add(p); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers p, replacing any peer on the same domain.
func (d *PeerDirectory) Add(p Peer) error {
	domain, err := DomainOf(p.Instance.ID)
	if err != nil {
		return fmt.Errorf("peer %q: %w", p.Instance.ID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[domain] = p
	return nil
}

// ResolveInstance implements InstanceResolver.
func (d *PeerDirectory) ResolveInstance(_ context.Context, id string) (types.Instance, error) {
	domain, err := DomainOf(id)
	if err != nil {
		return types.Instance{}, err
	}
	d.mu.RLock()
	p, ok := d.peers[domain]
	d.mu.RUnlock()
	if !ok {
		return types.Instance{}, fmt.Errorf("%w: %s", ErrUnknownInstance, domain)
	}
	return p.Instance, nil
}

// Peers returns the directory's peers.
func (d *PeerDirectory) Peers() []Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Peer, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, p)
	}
	return out
}
