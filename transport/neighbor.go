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

// Package transport holds the neighbor table and line framing that sit
// under the topology, registration-client, and NDN-forwarding
// subsystems (spec §3, §4.3): a bounded, newline-delimited text buffer
// per neighbor instead of length-prefixed binary records.
package transport

import (
	"net"

	"ndnoverlay/wire"
)

// NeighborType classifies a neighbor's role in the overlay tree (spec §3).
type NeighborType int

const (
	// PendingIncoming is assigned to a freshly accepted socket whose
	// peer identity is not yet known.
	PendingIncoming NeighborType = iota
	// External is the node's single link "up" the tree.
	External
	// Internal is any other tree neighbor.
	Internal
	// ExternalAndInternal is the degenerate two-node-network link.
	ExternalAndInternal
)

func (t NeighborType) String() string {
	switch t {
	case PendingIncoming:
		return "PendingIncoming"
	case External:
		return "External"
	case Internal:
		return "Internal"
	case ExternalAndInternal:
		return "ExternalAndInternal"
	default:
		return "?"
	}
}

// IsExternal reports whether a type carries the external role.
func (t NeighborType) IsExternal() bool {
	return t == External || t == ExternalAndInternal
}

// SockID identifies a socket-like endpoint: a real neighbor connection
// or the sentinel that represents the local user interface. PIT
// interfaces address neighbors by SockID rather than by a direct
// pointer, so a vanished neighbor simply stops resolving through the
// table instead of leaving a dangling reference (spec §9 "Cyclic
// references").
type SockID string

// UserSock is the sentinel socket identifier for the local user
// interface (spec §3: "a sentinel socket value distinct from any real
// socket"). No real net.Conn ever produces this id because it is keyed
// off the connection's remote-address string, which is never empty.
const UserSock SockID = ""

// SockIDOf derives the socket id for a live connection.
func SockIDOf(conn net.Conn) SockID {
	return SockID(conn.RemoteAddr().String())
}

// Neighbor is one entry in the neighbor table (spec §3).
type Neighbor struct {
	ID      SockID
	Conn    net.Conn
	Addr    wire.Addr // peer's own (ip,tcpPort), learned from ENTRY
	Type    NeighborType
	RecvBuf *RecvBuffer
}

// NewNeighbor wraps a connection with an empty receive buffer.
func NewNeighbor(conn net.Conn, addr wire.Addr, typ NeighborType) *Neighbor {
	return &Neighbor{
		ID:      SockIDOf(conn),
		Conn:    conn,
		Addr:    addr,
		Type:    typ,
		RecvBuf: NewRecvBuffer(),
	}
}

// Send writes one line (newline-appended) to the neighbor in a single
// write call (spec §4.3: "Outgoing messages are written in a single
// write"). The caller is responsible for removing the neighbor from
// the table on error.
func (n *Neighbor) Send(line string) error {
	_, err := n.Conn.Write([]byte(line + "\n"))
	return err
}

// Close closes the underlying connection. Safe to call more than once.
func (n *Neighbor) Close() {
	_ = n.Conn.Close()
}
