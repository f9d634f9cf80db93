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

package topology

import (
	"errors"
	"net"
	"testing"

	"ndnoverlay/transport"
	"ndnoverlay/wire"
)

type fakeConn struct {
	net.Conn
	remote  string
	closed  bool
	written []string
}

func (f *fakeConn) RemoteAddr() net.Addr        { return fakeAddr(f.remote) }
func (f *fakeConn) Close() error                { f.closed = true; return nil }
func (f *fakeConn) Write(p []byte) (int, error) { f.written = append(f.written, string(p)); return len(p), nil }

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

// fakeDialer hands out a fresh fakeConn per address and records what it
// was asked to dial; set fail to make every dial attempt return an error.
type fakeDialer struct {
	dialed []wire.Addr
	fail   bool
}

func (d *fakeDialer) Dial(addr wire.Addr) (net.Conn, error) {
	d.dialed = append(d.dialed, addr)
	if d.fail {
		return nil, errors.New("connection refused")
	}
	return &fakeConn{remote: addr.HostPort()}, nil
}

var ownAddr = wire.Addr{IP: "1.0.0.1", Port: 5001}

func TestConnectToSendsEntryAndMarksSoleNeighborExternalAndInternal(t *testing.T) {
	tbl := transport.NewTable()
	d := &fakeDialer{}
	m := New(tbl, ownAddr, d, nil)

	peer := wire.Addr{IP: "1.0.0.2", Port: 5002}
	n, err := m.ConnectTo(peer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != transport.ExternalAndInternal {
		t.Fatalf("expected ExternalAndInternal for the sole neighbor, got %v", n.Type)
	}
	fc := n.Conn.(*fakeConn)
	if len(fc.written) != 1 || fc.written[0] != "ENTRY 1.0.0.1 5001\n" {
		t.Fatalf("unexpected ENTRY write: %v", fc.written)
	}
}

func TestConnectToReusesExistingNeighbor(t *testing.T) {
	tbl := transport.NewTable()
	d := &fakeDialer{}
	m := New(tbl, ownAddr, d, nil)

	peer := wire.Addr{IP: "1.0.0.2", Port: 5002}
	n1, _ := m.ConnectTo(peer)
	n2, err := m.ConnectTo(peer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n1.ID != n2.ID {
		t.Fatal("expected reuse of existing neighbor, got a new one")
	}
	if len(d.dialed) != 1 {
		t.Fatalf("expected a single dial, got %d", len(d.dialed))
	}
}

func TestHandleEntryTwoNodeCaseMarksExternalAndInternal(t *testing.T) {
	tbl := transport.NewTable()
	m := New(tbl, ownAddr, &fakeDialer{}, nil)

	conn := &fakeConn{remote: "1.0.0.2:5002"}
	n := m.Accept(conn)
	if n.Type != transport.PendingIncoming {
		t.Fatalf("expected PendingIncoming, got %v", n.Type)
	}

	m.HandleEntry(n.ID, &wire.Entry{Addr: wire.Addr{IP: "1.0.0.2", Port: 5002}})
	if n.Type != transport.ExternalAndInternal {
		t.Fatalf("expected ExternalAndInternal for sole neighbor, got %v", n.Type)
	}
}

func TestHandleEntryWithExistingExternalMarksInternal(t *testing.T) {
	tbl := transport.NewTable()
	m := New(tbl, ownAddr, &fakeDialer{}, nil)

	// establish an external link first
	m.ConnectTo(wire.Addr{IP: "1.0.0.3", Port: 5003})

	conn := &fakeConn{remote: "1.0.0.2:5002"}
	n := m.Accept(conn)
	m.HandleEntry(n.ID, &wire.Entry{Addr: wire.Addr{IP: "1.0.0.2", Port: 5002}})
	if n.Type != transport.Internal {
		t.Fatalf("expected Internal with an existing external link, got %v", n.Type)
	}
}

func TestHandleLeaveSelfReferentialPromotesRemaining(t *testing.T) {
	tbl := transport.NewTable()
	m := New(tbl, ownAddr, &fakeDialer{}, nil)

	extConn := &fakeConn{remote: "1.0.0.9:5009"}
	ext := transport.NewNeighbor(extConn, wire.Addr{IP: "1.0.0.9", Port: 5009}, transport.External)
	tbl.Add(ext)
	intConn := &fakeConn{remote: "1.0.0.5:5005"}
	internal := transport.NewNeighbor(intConn, wire.Addr{IP: "1.0.0.5", Port: 5005}, transport.Internal)
	tbl.Add(internal)

	// the departed node's external link (as it announced) was us.
	m.HandleLeave(ext.ID, &wire.Leave{Addr: ownAddr})

	if _, ok := tbl.Get(ext.ID); ok {
		t.Fatal("expected departed neighbor to be removed")
	}
	// it is now the only neighbor, so the promotion yields ExternalAndInternal.
	if internal.Type != transport.ExternalAndInternal {
		t.Fatalf("expected sole remaining neighbor promoted to ExternalAndInternal, got %v", internal.Type)
	}
}

func TestHandleLeaveMatchingAddressPromotesExisting(t *testing.T) {
	tbl := transport.NewTable()
	m := New(tbl, ownAddr, &fakeDialer{}, nil)

	extConn := &fakeConn{remote: "1.0.0.9:5009"}
	ext := transport.NewNeighbor(extConn, wire.Addr{IP: "1.0.0.9", Port: 5009}, transport.External)
	tbl.Add(ext)
	matchAddr := wire.Addr{IP: "1.0.0.1", Port: 6001}
	matchConn := &fakeConn{remote: "1.0.0.1:6001"}
	match := transport.NewNeighbor(matchConn, matchAddr, transport.Internal)
	tbl.Add(match)

	m.HandleLeave(ext.ID, &wire.Leave{Addr: matchAddr})

	// it is now the only neighbor, so the promotion yields ExternalAndInternal.
	if match.Type != transport.ExternalAndInternal {
		t.Fatalf("expected sole matching neighbor promoted to ExternalAndInternal, got %v", match.Type)
	}
}

func TestHandleLeaveNoMatchDialsFresh(t *testing.T) {
	tbl := transport.NewTable()
	d := &fakeDialer{}
	m := New(tbl, ownAddr, d, nil)

	extConn := &fakeConn{remote: "1.0.0.9:5009"}
	ext := transport.NewNeighbor(extConn, wire.Addr{IP: "1.0.0.9", Port: 5009}, transport.External)
	tbl.Add(ext)

	fresh := wire.Addr{IP: "1.0.0.7", Port: 5007}
	m.HandleLeave(ext.ID, &wire.Leave{Addr: fresh})

	if len(d.dialed) != 1 || !d.dialed[0].Equal(fresh) {
		t.Fatalf("expected a fresh dial to %v, got %v", fresh, d.dialed)
	}
	if _, ok := tbl.ByAddr(fresh); !ok {
		t.Fatal("expected the freshly dialed address to be in the table")
	}
}

func TestHandleLeaveDialFailureLeavesNoExternal(t *testing.T) {
	tbl := transport.NewTable()
	d := &fakeDialer{fail: true}
	m := New(tbl, ownAddr, d, nil)

	extConn := &fakeConn{remote: "1.0.0.9:5009"}
	ext := transport.NewNeighbor(extConn, wire.Addr{IP: "1.0.0.9", Port: 5009}, transport.External)
	tbl.Add(ext)

	m.HandleLeave(ext.ID, &wire.Leave{Addr: wire.Addr{IP: "1.0.0.7", Port: 5007}})

	if _, ok := tbl.External(); ok {
		t.Fatal("expected no external link after a failed repair dial")
	}
}

func TestExternalAddrOrSelf(t *testing.T) {
	tbl := transport.NewTable()
	m := New(tbl, ownAddr, &fakeDialer{}, nil)

	if got := m.ExternalAddrOrSelf(); !got.Equal(ownAddr) {
		t.Fatalf("expected own address with no external link, got %v", got)
	}

	extConn := &fakeConn{remote: "1.0.0.9:5009"}
	ext := transport.NewNeighbor(extConn, wire.Addr{IP: "1.0.0.9", Port: 5009}, transport.External)
	tbl.Add(ext)
	if got := m.ExternalAddrOrSelf(); !got.Equal(ext.Addr) {
		t.Fatalf("expected external neighbor address, got %v", got)
	}
}
