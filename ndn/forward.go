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
	"errors"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/transport"
	"ndnoverlay/wire"
)

// ErrPITSaturated is returned when PIT.AllocID finds no free interest id
// for a name within its 256 random draws, which is always the case once
// all 256 ids are in use (spec §4.6 step 2, §8 boundary behavior).
var ErrPITSaturated = errors.New("no free interest id for this name")

// Forwarder implements the INTEREST/OBJECT/NOOBJECT handling of spec
// §4.6, on top of the local object set, content cache, PIT, and
// neighbor table.
type Forwarder struct {
	objects        *Objects
	cache          *Cache
	pit            *PIT
	table          *transport.Table
	deliver        func(name string, found bool)
	neighborFailed func(sock transport.SockID, wasExternal bool)
}

// NewForwarder wires the NDN subsystems together. deliver is called
// whenever a user-initiated retrieval resolves, with found reporting
// whether an OBJECT (true) or NOOBJECT (false) answered it. neighborFailed
// is called after a write failure has removed a neighbor from table, so
// node-level code (which also holds the topology manager) can trigger
// external-link repair without this package importing topology.
func NewForwarder(objects *Objects, cache *Cache, pit *PIT, table *transport.Table, deliver func(name string, found bool), neighborFailed func(sock transport.SockID, wasExternal bool)) *Forwarder {
	return &Forwarder{objects: objects, cache: cache, pit: pit, table: table, deliver: deliver, neighborFailed: neighborFailed}
}

// onFailedSend handles a write failure on n (spec §7 "the caller is
// responsible for removing the neighbor from the table on error"): it logs,
// removes n from the table, and reports whether n held the external role so
// the caller can repair the external link (spec §4.4).
func (f *Forwarder) onFailedSend(n *transport.Neighbor, err error, context string) {
	logger.Printf(logger.WARN, "[ndn] %s to %s failed: %s", context, n.ID, err)
	wasExternal := n.Type.IsExternal()
	f.table.Remove(n.ID)
	if f.neighborFailed != nil {
		f.neighborFailed(n.ID, wasExternal)
	}
}

// localLookup implements the "local lookup order" rule of spec §4.6:
// local objects first, then cache.
func (f *Forwarder) localLookup(name string) bool {
	return f.objects.Has(name) || f.cache.Contains(name)
}

// InitiateRetrieval starts a user-driven retrieval of name (spec §4.6
// "Initiating a retrieval (user)"). A local or cached hit resolves
// immediately via deliver; otherwise an INTEREST is sent to every
// current neighbor and the result arrives later through HandleObject or
// HandleNoObject.
func (f *Forwarder) InitiateRetrieval(name string) error {
	if f.localLookup(name) {
		f.deliver(name, true)
		return nil
	}
	id, ok := f.pit.AllocID(name)
	if !ok {
		return ErrPITSaturated
	}
	key := Key{ID: id, Name: name}
	entry := f.pit.New(key, transport.UserSock)
	neighbors := f.table.All()
	interest := &wire.Interest{ID: id, Name: name}
	sent := 0
	for _, n := range neighbors {
		if err := n.Send(interest.Render()); err != nil {
			f.onFailedSend(n, err, "interest send")
			continue
		}
		entry.AddWaiting(n.ID)
		sent++
	}
	if sent == 0 {
		f.pit.Retire(key)
		f.deliver(name, false)
	}
	return nil
}

// HandleInterest processes an INTEREST arriving on sock (spec §4.6
// "Relaying INTEREST from socket S").
func (f *Forwarder) HandleInterest(sock transport.SockID, m *wire.Interest) {
	key := Key{ID: m.ID, Name: m.Name}
	if f.localLookup(m.Name) {
		f.sendTo(sock, (&wire.Object{ID: m.ID, Name: m.Name}).Render())
		return
	}
	if entry, ok := f.pit.Get(key); ok {
		entry.UpgradeResponse(sock)
		return
	}
	entry := f.pit.New(key, sock)
	others := f.table.Others(sock)
	if len(others) == 0 {
		f.sendTo(sock, (&wire.NoObject{ID: m.ID, Name: m.Name}).Render())
		f.pit.Retire(key)
		return
	}
	interest := &wire.Interest{ID: m.ID, Name: m.Name}
	sent := 0
	for _, n := range others {
		if err := n.Send(interest.Render()); err != nil {
			f.onFailedSend(n, err, "interest forward")
			continue
		}
		entry.AddWaiting(n.ID)
		sent++
	}
	if sent == 0 {
		f.sendTo(sock, (&wire.NoObject{ID: m.ID, Name: m.Name}).Render())
		f.pit.Retire(key)
	}
}

// HandleObject processes an OBJECT arriving on sock (spec §4.6 "OBJECT
// receipt"). A reply with no matching PIT entry is a duplicate and is
// dropped silently.
func (f *Forwarder) HandleObject(sock transport.SockID, m *wire.Object) {
	key := Key{ID: m.ID, Name: m.Name}
	entry, ok := f.pit.Get(key)
	if !ok {
		return
	}
	f.cache.Admit(m.Name)
	if resp := entry.response(); resp != nil {
		f.sendResult(resp.Sock, m.ID, m.Name, true)
	}
	f.pit.Retire(key)
}

// HandleNoObject processes a NOOBJECT arriving on sock (spec §4.6
// "NOOBJECT receipt").
func (f *Forwarder) HandleNoObject(sock transport.SockID, m *wire.NoObject) {
	key := Key{ID: m.ID, Name: m.Name}
	entry, ok := f.pit.Get(key)
	if !ok {
		return
	}
	f.pit.CloseIface(key, sock)
	if entry.waitingCount() > 0 {
		return
	}
	if resp := entry.response(); resp != nil {
		f.sendResult(resp.Sock, m.ID, m.Name, false)
	}
	f.pit.Retire(key)
}

// NeighborGone retires or trims every PIT entry that referenced sock,
// which has just been removed from the neighbor table (spec §9: a
// vanished neighbor's socket id becomes invalid and any PIT interface
// borrowing it is treated as Closed on next inspection). An entry whose
// Response interface was sock can no longer be answered and is retired
// outright; one whose Waiting interface was sock is closed and, if no
// Waiting interface remains, propagated as NOOBJECT like a normal
// NOOBJECT receipt.
func (f *Forwarder) NeighborGone(sock transport.SockID) {
	for key, entry := range f.pit.entries {
		iface := entry.iface(sock)
		if iface == nil {
			continue
		}
		if iface.State == Response {
			f.pit.Retire(key)
			continue
		}
		iface.State = Closed
		if entry.waitingCount() > 0 {
			continue
		}
		if resp := entry.response(); resp != nil {
			f.sendResult(resp.Sock, key.ID, key.Name, false)
		}
		f.pit.Retire(key)
	}
}

// sendTo writes a line to a real neighbor socket, doing nothing if the
// socket has since vanished from the table (spec §9: a borrowed PIT
// reference to a gone neighbor simply fails to resolve).
func (f *Forwarder) sendTo(sock transport.SockID, line string) {
	if n, ok := f.table.Get(sock); ok {
		if err := n.Send(line); err != nil {
			f.onFailedSend(n, err, "send")
		}
	}
}

// sendResult delivers a resolved interest along resp: to the user
// sentinel via the deliver callback, or as an OBJECT/NOOBJECT line to a
// real neighbor.
func (f *Forwarder) sendResult(resp transport.SockID, id byte, name string, found bool) {
	if resp == transport.UserSock {
		f.deliver(name, found)
		return
	}
	if found {
		f.sendTo(resp, (&wire.Object{ID: id, Name: name}).Render())
	} else {
		f.sendTo(resp, (&wire.NoObject{ID: id, Name: name}).Render())
	}
}
