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

package transport

import (
	"ndnoverlay/wire"
)

// Table is the node's neighbor table (spec §3). It is only ever
// touched from the single event-loop goroutine, so it needs no
// internal locking of its own.
type Table struct {
	byID map[SockID]*Neighbor
}

// NewTable creates an empty neighbor table.
func NewTable() *Table {
	return &Table{byID: make(map[SockID]*Neighbor)}
}

// Add inserts or replaces a neighbor entry.
func (t *Table) Add(n *Neighbor) {
	t.byID[n.ID] = n
}

// Get looks up a neighbor by socket id.
func (t *Table) Get(id SockID) (*Neighbor, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Remove deletes and closes a neighbor, returning it if present.
func (t *Table) Remove(id SockID) *Neighbor {
	n, ok := t.byID[id]
	if !ok {
		return nil
	}
	delete(t.byID, id)
	n.Close()
	return n
}

// All returns every neighbor in table order (insertion order is not
// preserved by Go maps; callers that need a fixed dispatch order should
// not rely on it beyond "some order", matching spec §5's "no
// cross-stream ordering guarantee").
func (t *Table) All() []*Neighbor {
	out := make([]*Neighbor, 0, len(t.byID))
	for _, n := range t.byID {
		out = append(out, n)
	}
	return out
}

// Count returns the number of neighbors.
func (t *Table) Count() int {
	return len(t.byID)
}

// External returns the node's external (or external-and-internal)
// neighbor, if any. Invariant (spec §8.1): at most one exists.
func (t *Table) External() (*Neighbor, bool) {
	for _, n := range t.byID {
		if n.Type.IsExternal() {
			return n, true
		}
	}
	return nil, false
}

// Internals returns every neighbor with an internal role (Internal or
// ExternalAndInternal).
func (t *Table) Internals() []*Neighbor {
	var out []*Neighbor
	for _, n := range t.byID {
		if n.Type == Internal || n.Type == ExternalAndInternal {
			out = append(out, n)
		}
	}
	return out
}

// Others returns every neighbor except the one with the given socket id.
func (t *Table) Others(except SockID) []*Neighbor {
	var out []*Neighbor
	for id, n := range t.byID {
		if id != except {
			out = append(out, n)
		}
	}
	return out
}

// ByAddr finds a neighbor whose advertised (ip,port) matches addr.
func (t *Table) ByAddr(addr wire.Addr) (*Neighbor, bool) {
	for _, n := range t.byID {
		if n.Addr.Equal(addr) {
			return n, true
		}
	}
	return nil, false
}

// Retype changes a neighbor's type, applying the sole-neighbor rule:
// when the table holds exactly one neighbor, a promotion to an
// external role becomes ExternalAndInternal (spec §4.4 repair rules,
// §3 invariant 2).
func (t *Table) Retype(id SockID, want NeighborType) {
	n, ok := t.byID[id]
	if !ok {
		return
	}
	if want.IsExternal() && t.Count() == 1 {
		n.Type = ExternalAndInternal
		return
	}
	n.Type = want
}
