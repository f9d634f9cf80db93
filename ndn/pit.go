// This file is part of ndnoverlay, a peer-to-peer NDN overlay node.
//
// ndnoverlay is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// ndnoverlay is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package ndn

import (
	"ndnoverlay/events"
	"ndnoverlay/transport"
	"ndnoverlay/util"
)

// IfaceState is the state of one interface record within a PIT entry
// (spec §3 "Pending Interest Table").
type IfaceState int

const (
	// Response marks an interface the node must answer toward.
	Response IfaceState = iota
	// Waiting is an interface the node has forwarded the interest to
	// and is still awaiting an answer from.
	Waiting
	// Closed marks an interface whose neighbor sent NOOBJECT or has
	// since disappeared; it no longer counts toward "still waiting".
	Closed
)

func (s IfaceState) String() string {
	switch s {
	case Response:
		return "Response"
	case Waiting:
		return "Waiting"
	case Closed:
		return "Closed"
	default:
		return "?"
	}
}

// Key identifies a PIT entry: an interest id paired with the object
// name it concerns (spec §3, invariant 5: unique per (id,name)).
type Key struct {
	ID   byte
	Name string
}

// Iface is one interface record of a PIT entry. Sock references a
// neighbor by borrowed identifier rather than by pointer (spec §9
// "Cyclic references"): if the neighbor vanishes, Sock simply stops
// resolving through the neighbor table instead of leaving a dangling
// reference.
type Iface struct {
	Sock  transport.SockID
	State IfaceState
}

// Entry is one Pending Interest Table entry.
type Entry struct {
	Key    Key
	Ifaces []*Iface
}

// response returns the entry's first Response interface, or nil if it
// has none (handlers check rather than assume). UpgradeResponse can leave
// an entry with more than one Response interface; only the first one in
// Ifaces order is returned.
func (e *Entry) response() *Iface {
	for _, i := range e.Ifaces {
		if i.State == Response {
			return i
		}
	}
	return nil
}

// waitingCount returns how many interfaces are still Waiting.
func (e *Entry) waitingCount() int {
	n := 0
	for _, i := range e.Ifaces {
		if i.State == Waiting {
			n++
		}
	}
	return n
}

// iface returns the interface for sock, if present.
func (e *Entry) iface(sock transport.SockID) *Iface {
	for _, i := range e.Ifaces {
		if i.Sock == sock {
			return i
		}
	}
	return nil
}

// PIT is the node's Pending Interest Table.
type PIT struct {
	entries map[Key]*Entry
	hub     *events.Hub
}

// NewPIT creates an empty PIT. hub may be nil.
func NewPIT(hub *events.Hub) *PIT {
	return &PIT{entries: make(map[Key]*Entry), hub: hub}
}

// Get looks up an entry by key.
func (p *PIT) Get(key Key) (*Entry, bool) {
	e, ok := p.entries[key]
	return e, ok
}

// Has reports whether an entry exists for key.
func (p *PIT) Has(key Key) bool {
	_, ok := p.entries[key]
	return ok
}

// All returns every current entry, for the "show interest table" UI
// command and the optional status endpoint.
func (p *PIT) All() []*Entry {
	out := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// AllocID draws up to 256 random candidate ids and returns the first
// one not already used by name in the PIT (spec §4.6 step 2: "pick a
// random id not currently present in the PIT (draw up to 256
// candidates; give up if all are taken)"). ok is false if every draw
// collided.
func (p *PIT) AllocID(name string) (id byte, ok bool) {
	for i := 0; i < 256; i++ {
		cand := util.RandByte()
		if !p.Has(Key{ID: cand, Name: name}) {
			return cand, true
		}
	}
	return 0, false
}

// New creates a fresh PIT entry for key with the given Response socket,
// and emits EvPITCreate.
func (p *PIT) New(key Key, response transport.SockID) *Entry {
	e := &Entry{Key: key, Ifaces: []*Iface{{Sock: response, State: Response}}}
	p.entries[key] = e
	p.emit(events.EvPITCreate, key.Name)
	return e
}

// AddWaiting appends a Waiting interface to an existing entry.
func (e *Entry) AddWaiting(sock transport.SockID) {
	e.Ifaces = append(e.Ifaces, &Iface{Sock: sock, State: Waiting})
}

// UpgradeResponse adds sock as a Response interface, or upgrades its
// existing interface to Response if already present (spec §4.6
// "Relaying INTEREST ... add (or upgrade) S as a Response interface").
func (e *Entry) UpgradeResponse(sock transport.SockID) {
	if i := e.iface(sock); i != nil {
		i.State = Response
		return
	}
	e.Ifaces = append(e.Ifaces, &Iface{Sock: sock, State: Response})
}

// Retire deletes an entry from the PIT and emits EvPITRetire.
func (p *PIT) Retire(key Key) {
	if _, ok := p.entries[key]; !ok {
		return
	}
	delete(p.entries, key)
	p.emit(events.EvPITRetire, key.Name)
}

// CloseIface marks sock's interface within key's entry as Closed; it is
// a no-op if the entry or interface no longer exists (e.g. the sock was
// already removed from the neighbor table and the borrowed reference
// simply stopped resolving).
func (p *PIT) CloseIface(key Key, sock transport.SockID) {
	e, ok := p.entries[key]
	if !ok {
		return
	}
	if i := e.iface(sock); i != nil {
		i.State = Closed
	}
}

func (p *PIT) emit(kind int, detail string) {
	if p.hub == nil {
		return
	}
	p.hub.Emit(&events.Event{Kind: kind, Detail: detail})
}
