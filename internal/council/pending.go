package council

import (
	"sort"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// Pending holds station addresses learned from the district feed, keyed by
// cross-reference code, until the station feed claims them.
type Pending struct {
	addrs map[string]string
}

// PendingStation is an address that no station record claimed.
type PendingStation struct {
	Code    string
	Address string
}

// NewPending returns an empty map.
func NewPending() *Pending {
	return &Pending{addrs: make(map[string]string)}
}

// Put records address under code. Re-recording the same address is a no-op;
// a different address for a known code is a ConflictError.
func (p *Pending) Put(code, address string) error {
	if existing, ok := p.addrs[code]; ok && existing != address {
		return &model.ConflictError{Code: code, Existing: existing, Incoming: address}
	}
	p.addrs[code] = address
	return nil
}

// Take removes and returns the address for code.
func (p *Pending) Take(code string) (string, bool) {
	addr, ok := p.addrs[code]
	if ok {
		delete(p.addrs, code)
	}
	return addr, ok
}

// Len returns the number of unclaimed codes.
func (p *Pending) Len() int {
	return len(p.addrs)
}

// Drain removes and returns every unclaimed entry, ordered by code.
func (p *Pending) Drain() []PendingStation {
	out := make([]PendingStation, 0, len(p.addrs))
	for code, addr := range p.addrs {
		out = append(out, PendingStation{Code: code, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	p.addrs = make(map[string]string)
	return out
}
