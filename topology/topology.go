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

// Package topology implements the ENTRY/LEAVE exchange that builds and
// repairs the overlay tree. It sits directly on top of transport.Table
// and never touches NDN state, keeping peer/session bring-up layered
// below the application protocols.
package topology

import (
	"errors"
	"net"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/events"
	"ndnoverlay/transport"
	"ndnoverlay/wire"
)

// Dialer opens a TCP connection to a peer address. Abstracted so tests
// can exercise repair logic without real sockets.
type Dialer interface {
	Dial(addr wire.Addr) (net.Conn, error)
}

// NetDialer is the production Dialer, dialing real TCP connections.
type NetDialer struct{}

// Dial opens a TCP connection to addr.
func (NetDialer) Dial(addr wire.Addr) (net.Conn, error) {
	return net.Dial("tcp", addr.HostPort())
}

// ErrNoPeer reports that no peer address is available. No function in
// this repository returns it; it is kept for symmetry with the rest of
// the error taxonomy.
var ErrNoPeer = errors.New("no peer address available")

// Manager owns the ENTRY/LEAVE protocol for one node.
type Manager struct {
	table *transport.Table
	own   wire.Addr
	dial  Dialer
	hub   *events.Hub
}

// New creates a topology manager bound to own's identity and table.
func New(table *transport.Table, own wire.Addr, dial Dialer, hub *events.Hub) *Manager {
	if dial == nil {
		dial = NetDialer{}
	}
	return &Manager{table: table, own: own, dial: dial, hub: hub}
}

// ConnectTo implements connect_to_node (spec §4.4 "Connect (outgoing)"):
// if addr is already a neighbor, reuse it; otherwise dial, add the
// neighbor as External (ExternalAndInternal when it is the only
// neighbor), and send ENTRY.
func (m *Manager) ConnectTo(addr wire.Addr) (*transport.Neighbor, error) {
	if n, ok := m.table.ByAddr(addr); ok {
		return n, nil
	}
	conn, err := m.dial.Dial(addr)
	if err != nil {
		return nil, err
	}
	n := transport.NewNeighbor(conn, addr, transport.External)
	m.table.Add(n)
	// route through Retype, which already applies the sole-neighbor
	// promotion rule, so invariant 2 (sole neighbor => ExternalAndInternal)
	// holds immediately instead of only once a join's two-node heuristic
	// also happens to fire.
	m.table.Retype(n.ID, transport.External)
	entry := &wire.Entry{Addr: m.own}
	if err := n.Send(entry.Render()); err != nil {
		m.table.Remove(n.ID)
		return nil, err
	}
	m.emit(events.EvNeighborUp, addr.String())
	return n, nil
}

// Accept implements accept (spec §4.4 "Accept (incoming)"): a freshly
// accepted socket is recorded with no meaningful address yet.
func (m *Manager) Accept(conn net.Conn) *transport.Neighbor {
	n := transport.NewNeighbor(conn, wire.Addr{}, transport.PendingIncoming)
	m.table.Add(n)
	return n
}

// HandleEntry processes an ENTRY received on socket id (spec §4.4
// "ENTRY receipt"). The asymmetric classification rule is applied here:
// the acceptor becomes Internal unless this is its only neighbor and it
// has no external link yet, in which case both ends mark the link
// ExternalAndInternal.
func (m *Manager) HandleEntry(id transport.SockID, msg *wire.Entry) {
	n, ok := m.table.Get(id)
	if !ok {
		return
	}
	n.Addr = msg.Addr
	if _, hasExternal := m.table.External(); !hasExternal && m.table.Count() == 1 {
		n.Type = transport.ExternalAndInternal
	} else {
		n.Type = transport.Internal
	}
	logger.Printf(logger.INFO, "[topology] neighbor %s classified as %s", id, n.Type)
	m.emit(events.EvNeighborUp, string(id))
}

// HandleLeave processes a LEAVE received on socket id (spec §4.4 "LEAVE
// message format and semantics"). It removes the sending neighbor and,
// if that neighbor held the external role, repairs the external link.
func (m *Manager) HandleLeave(id transport.SockID, msg *wire.Leave) {
	n, ok := m.table.Get(id)
	if !ok {
		return
	}
	wasExternal := n.Type.IsExternal()
	m.table.Remove(id)
	m.emit(events.EvNeighborDown, string(id))
	if !wasExternal {
		return
	}
	m.repairExternal(msg.Addr)
}

// repairExternal carries out step 3 of the LEAVE protocol: promote a
// matching or remaining neighbor to External, or dial the announced
// address fresh.
func (m *Manager) repairExternal(x wire.Addr) {
	if x.Equal(m.own) {
		// the departed node's external link was this node itself;
		// promote any remaining neighbor.
		for _, n := range m.table.All() {
			m.table.Retype(n.ID, transport.External)
			logger.Printf(logger.INFO, "[topology] promoted %s to external (self-referential LEAVE)", n.ID)
			return
		}
		return
	}
	if n, ok := m.table.ByAddr(x); ok {
		m.table.Retype(n.ID, transport.External)
		logger.Printf(logger.INFO, "[topology] promoted %s to external (matched LEAVE address)", n.ID)
		return
	}
	n, err := m.ConnectTo(x)
	if err != nil {
		logger.Printf(logger.WARN, "[topology] external repair dial to %s failed: %s", x, err)
		return
	}
	logger.Printf(logger.INFO, "[topology] repaired external link via fresh connect to %s", n.Addr)
}

// RepairExternalLinkUnknownTarget handles the loss of the external link
// with no LEAVE address to act on (spec §7: "Socket write error / read
// returning 0 ... if that neighbor was external, trigger external-link
// repair as per §4.4"). Without an announced (X_ip,X_port) there is no
// fresh-connect target, so this only promotes a remaining neighbor if
// one exists; otherwise the node is left with no external link until
// its next join (spec §4.4 closing note).
func (m *Manager) RepairExternalLinkUnknownTarget() {
	for _, n := range m.table.All() {
		m.table.Retype(n.ID, transport.External)
		logger.Printf(logger.INFO, "[topology] promoted %s to external after unexpected link loss", n.ID)
		return
	}
	logger.Printf(logger.WARN, "[topology] external link lost with no remaining neighbor to promote")
}

// ExternalAddrOrSelf returns the address to carry in an outgoing LEAVE:
// the current external neighbor's address, or this node's own identity
// if it has none (spec §4.4 "LEAVE message format and semantics").
func (m *Manager) ExternalAddrOrSelf() wire.Addr {
	if n, ok := m.table.External(); ok {
		return n.Addr
	}
	return m.own
}

func (m *Manager) emit(kind int, detail string) {
	if m.hub == nil {
		return
	}
	m.hub.Emit(&events.Event{Kind: kind, Detail: detail})
}
