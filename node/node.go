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

// Package node wires together the transport, topology, regclient, and
// ndn packages into the single-threaded event-driven node runtime (spec
// §4.2, §5). Its Node value is explicit, threaded-through state rather
// than a process-wide accessor.
package node

import (
	"fmt"
	"io"
	"net"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/events"
	"ndnoverlay/ndn"
	"ndnoverlay/regclient"
	"ndnoverlay/topology"
	"ndnoverlay/transport"
	"ndnoverlay/wire"
)

// Node owns every piece of per-node state and the sockets that feed it.
// It is never accessed from more than one goroutine at a time except
// through the channels declared in loop.go and the StatusServer's own
// snapshot lock.
type Node struct {
	Own     wire.Addr
	Table   *transport.Table
	Topo    *topology.Manager
	Reg     *regclient.Client
	Objects *ndn.Objects
	Cache   *ndn.Cache
	PIT     *ndn.PIT
	Forward *ndn.Forwarder
	Hub     *events.Hub
	Status  *StatusServer

	out io.Writer

	listener net.Listener
	udpConn  *net.UDPConn
	regAddr  *net.UDPAddr

	leaving          bool
	pendingInternals int
	exitRequested    bool

	uiLines        chan string
	accepts        chan net.Conn
	udpIn          chan udpDatagram
	neighborLines  chan neighborLine
	neighborClosed chan transport.SockID
}

type udpDatagram struct {
	from *net.UDPAddr
	data []byte
}

type neighborLine struct {
	sock transport.SockID
	line string
}

// Config bundles the parameters New needs; kept as a struct rather than
// a long parameter list since most fields have sane defaults.
type Config struct {
	Own        wire.Addr
	RegIP      string
	RegPort    int
	CacheCap   int
	StatusAddr string // empty disables the optional HTTP status endpoint
	Out        io.Writer
}

// New binds the node's listening TCP socket and UDP socket and wires
// every subsystem together. It does not start the event loop; call
// Start for that.
func New(cfg Config) (*Node, error) {
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = config.DefaultCacheCap
	}
	listener, err := net.Listen("tcp", cfg.Own.HostPort())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Own.HostPort(), err)
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(cfg.Own.IP)})
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("open UDP socket: %w", err)
	}
	regAddr := &net.UDPAddr{IP: net.ParseIP(cfg.RegIP), Port: cfg.RegPort}

	hub := events.NewHub()
	table := transport.NewTable()
	n := &Node{
		Own:            cfg.Own,
		Table:          table,
		Topo:           topology.New(table, cfg.Own, topology.NetDialer{}, hub),
		Reg:            regclient.New(regclient.NetSender{Conn: udpConn}, regAddr, cfg.Own),
		Objects:        ndn.NewObjects(),
		Cache:          ndn.NewCache(cfg.CacheCap, hub),
		Hub:            hub,
		out:            cfg.Out,
		listener:       listener,
		udpConn:        udpConn,
		regAddr:        regAddr,
		uiLines:        make(chan string, 1),
		accepts:        make(chan net.Conn, 8),
		udpIn:          make(chan udpDatagram, 8),
		neighborLines:  make(chan neighborLine, 64),
		neighborClosed: make(chan transport.SockID, 8),
	}
	n.PIT = ndn.NewPIT(hub)
	n.Forward = ndn.NewForwarder(n.Objects, n.Cache, n.PIT, table, n.deliverRetrieval, n.onForwardSendFailed)
	if cfg.StatusAddr != "" {
		n.Status = NewStatusServer(cfg.StatusAddr)
	}
	return n, nil
}

// deliverRetrieval is the Forwarder callback for user-initiated
// retrievals (spec §4.6).
func (n *Node) deliverRetrieval(name string, found bool) {
	if found {
		fmt.Fprintf(n.out, "FOUND %s\n", name)
	} else {
		fmt.Fprintf(n.out, "NOT FOUND %s\n", name)
	}
}

// onForwardSendFailed is the Forwarder callback for a neighbor write
// failure (spec §7): the neighbor is already removed from the table by
// the time this runs, so all that is left is triggering external-link
// repair (spec §4.4) if that neighbor held the external role.
func (n *Node) onForwardSendFailed(sock transport.SockID, wasExternal bool) {
	if wasExternal {
		n.Topo.RepairExternalLinkUnknownTarget()
	}
}

// printf writes a UI-facing line, kept separate from the logger.
func (n *Node) printf(format string, args ...interface{}) {
	fmt.Fprintf(n.out, format, args...)
}

//----------------------------------------------------------------------
// Registration / join (spec §4.5)
//----------------------------------------------------------------------

// Join sends NODES <net> and remembers the request; the outcome is
// applied once the reply arrives via handleUDP -> Reg.HandleReply.
func (n *Node) Join(net config.NetID) {
	if err := n.Reg.Join(net); err != nil {
		logger.Printf(logger.WARN, "[node] join net %s failed: %s", net, err)
		n.printf("join failed: %s\n", err)
	}
}

// DirectJoin implements "direct join <ip> <port>" (spec §4.5). The
// 0.0.0.0 0 special case registers this node as the first member of the
// default net (net 0) without connecting anywhere; any other address
// connects straight to that peer, relying on ENTRY/classification to
// establish the right neighbor type, and — following the same
// register-on-success rule as a normal join — sends REG for the default
// net once the connection succeeds (spec leaves the exact REG timing
// for this path ambiguous; see DESIGN.md).
func (n *Node) DirectJoin(addr wire.Addr) {
	const defaultNet = config.NetID(0)
	if addr.IP == "0.0.0.0" && addr.Port == 0 {
		if err := n.Reg.Reg(defaultNet); err != nil {
			logger.Printf(logger.WARN, "[node] direct join registration failed: %s", err)
		}
		return
	}
	if _, err := n.Topo.ConnectTo(addr); err != nil {
		n.printf("connect to %s failed: %s\n", addr, err)
		return
	}
	if err := n.Reg.Reg(defaultNet); err != nil {
		logger.Printf(logger.WARN, "[node] direct join registration failed: %s", err)
	}
}

//----------------------------------------------------------------------
// Departure (spec §4.5 "leave", §5 lifecycle)
//----------------------------------------------------------------------

// Leave sends LEAVE to every internal/external-and-internal neighbor,
// sends UNREG, and enters the leaving state: the loop keeps running
// only to observe those neighbors close.
func (n *Node) Leave() {
	if n.leaving {
		return
	}
	leaveAddr := n.Topo.ExternalAddrOrSelf()
	msg := &wire.Leave{Addr: leaveAddr}
	count := 0
	for _, nb := range n.Table.All() {
		if nb.Type == transport.Internal || nb.Type == transport.ExternalAndInternal {
			if err := nb.Send(msg.Render()); err != nil {
				logger.Printf(logger.WARN, "[node] LEAVE send to %s failed: %s", nb.ID, err)
				n.Table.Remove(nb.ID)
				continue
			}
			count++
		}
	}
	if err := n.Reg.Unreg(); err != nil {
		logger.Printf(logger.WARN, "[node] UNREG failed: %s", err)
	}
	n.leaving = true
	n.pendingInternals = count
	if count == 0 {
		n.exitRequested = true
	}
}

// RequestExit implements the immediate "exit" command (spec §5): send
// UNREG if still registered, pause briefly for the datagram to leave,
// then let the loop close every socket and return.
func (n *Node) RequestExit() {
	n.exitRequested = true
}

// Shutdown closes every owned socket exactly once (spec §5 "Resources").
func (n *Node) Shutdown() {
	n.listener.Close()
	n.udpConn.Close()
	for _, nb := range n.Table.All() {
		n.Table.Remove(nb.ID)
	}
	if n.Status != nil {
		n.Status.srv.Close()
	}
}

// snapshot builds a read-only status view for the optional HTTP
// endpoint (spec §B in SPEC_FULL.md).
func (n *Node) snapshot() Snapshot {
	s := Snapshot{NetID: n.Reg.CurrentNet().String()}
	for _, nb := range n.Table.All() {
		s.Neighbors = append(s.Neighbors, NeighborInfo{ID: string(nb.ID), Addr: nb.Addr.String(), Type: nb.Type.String()})
	}
	s.LocalObjects = n.Objects.List()
	s.CachedObjects = n.Cache.Len()
	for _, e := range n.PIT.All() {
		var ifaces []string
		for _, i := range e.Ifaces {
			ifaces = append(ifaces, fmt.Sprintf("%s:%s", i.Sock, i.State))
		}
		s.PIT = append(s.PIT, PITInfo{ID: e.Key.ID, Name: e.Key.Name, Ifaces: ifaces})
	}
	return s
}
