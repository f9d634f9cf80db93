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

package node

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/transport"
	"ndnoverlay/ui"
	"ndnoverlay/wire"
)

// Start launches the reader goroutines that feed the central loop and
// then runs the loop itself, returning once the node has shut down
// (spec §4.2, §5). in is the UI input stream (normally os.Stdin).
func (n *Node) Start(ctx context.Context, in io.Reader) {
	go n.readUI(in)
	go n.acceptLoop()
	go n.udpReadLoop()
	if n.Status != nil {
		n.Status.Start(ctx)
	}
	n.run(ctx)
}

// readUI forwards stdin lines into uiLines. A closed stdin (EOF) is
// treated the same as an explicit "exit" so a scripted/piped session
// terminates cleanly.
func (n *Node) readUI(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		n.uiLines <- scanner.Text()
	}
	n.uiLines <- "exit"
}

// acceptLoop forwards newly accepted TCP connections into accepts.
func (n *Node) acceptLoop() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return
		}
		n.accepts <- conn
	}
}

// udpReadLoop forwards inbound datagrams into udpIn.
func (n *Node) udpReadLoop() {
	buf := make([]byte, config.MaxDatagramSize)
	for {
		size, from, err := n.udpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		data := make([]byte, size)
		copy(data, buf[:size])
		n.udpIn <- udpDatagram{from: from, data: data}
	}
}

// readNeighbor owns one neighbor's socket reads for its lifetime,
// framing raw bytes through its private RecvBuffer (spec §4.3) and
// forwarding complete lines into neighborLines. Buffer access is
// confined to this one goroutine per neighbor, so no lock is needed
// even though the central loop also reads Neighbor.Addr/Type fields
// concurrently with this goroutine's writes to RecvBuf.
func (n *Node) readNeighbor(nb *transport.Neighbor) {
	buf := make([]byte, config.MaxDatagramSize)
	for {
		size, err := nb.Conn.Read(buf)
		if err != nil || size == 0 {
			n.neighborClosed <- nb.ID
			return
		}
		lines, dropped := nb.RecvBuf.Feed(buf[:size])
		if dropped {
			logger.Printf(logger.WARN, "[node] receive buffer overflow from %s, fragment dropped", nb.ID)
		}
		for _, line := range lines {
			n.neighborLines <- neighborLine{sock: nb.ID, line: line}
		}
	}
}

// run is the central dispatch loop (spec §4.2, §5). Each pass first
// drains whatever sources are already ready, in the fixed order stdin
// -> listener -> UDP -> neighbors, then blocks on all sources at once
// once nothing more is ready. A signal interrupting the blocking wait
// simply resumes the loop (Go's runtime already restarts interrupted
// syscalls, so no explicit handling is needed here).
func (n *Node) run(ctx context.Context) {
	for {
		n.drainReady(ctx)
		if n.checkExit() {
			n.Shutdown()
			return
		}
		if !n.waitForOne(ctx) {
			n.Shutdown()
			return
		}
		if n.checkExit() {
			n.Shutdown()
			return
		}
		if n.Status != nil {
			n.Status.Update(n.snapshot())
		}
	}
}

// drainReady services every currently-ready source once, in dispatch
// order, without blocking.
func (n *Node) drainReady(ctx context.Context) {
	for {
		select {
		case line := <-n.uiLines:
			n.handleUI(line)
			continue
		default:
		}
		select {
		case conn := <-n.accepts:
			n.handleAccept(conn)
			continue
		default:
		}
		select {
		case dg := <-n.udpIn:
			n.handleUDP(dg)
			continue
		default:
		}
		select {
		case nl := <-n.neighborLines:
			n.handleNeighborLine(nl)
			continue
		default:
		}
		select {
		case sock := <-n.neighborClosed:
			n.handleNeighborClosed(sock)
			continue
		default:
		}
		return
	}
}

// waitForOne blocks until exactly one source becomes ready (or ctx is
// cancelled), dispatches it, and returns. It reports false if the loop
// should stop.
func (n *Node) waitForOne(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case line := <-n.uiLines:
		n.handleUI(line)
	case conn := <-n.accepts:
		n.handleAccept(conn)
	case dg := <-n.udpIn:
		n.handleUDP(dg)
	case nl := <-n.neighborLines:
		n.handleNeighborLine(nl)
	case sock := <-n.neighborClosed:
		n.handleNeighborClosed(sock)
	}
	return true
}

// checkExit implements the loop-exit condition of spec §4.2: the user
// typed exit, or a leave has drained every internal neighbor.
func (n *Node) checkExit() bool {
	if n.exitRequested {
		if n.Reg.Registered {
			n.Reg.Unreg()
			time.Sleep(config.ExitDrainPause * time.Millisecond)
		}
		return true
	}
	return n.leaving && n.pendingInternals == 0
}

//----------------------------------------------------------------------
// Dispatch handlers
//----------------------------------------------------------------------

func (n *Node) handleUI(line string) {
	cmd, err := ui.Parse(line)
	if err != nil {
		n.printf("usage: %s\n%s\n", err, ui.HelpText())
		return
	}
	switch cmd.Kind {
	case ui.Join:
		n.Join(cmd.Net)
	case ui.DirectJoin:
		n.DirectJoin(cmd.Addr)
	case ui.Create:
		if err := n.Objects.Create(cmd.Name); err != nil {
			n.printf("create failed: %s\n", err)
		}
	case ui.Delete:
		if !n.Objects.Delete(cmd.Name) {
			n.printf("no such object: %s\n", cmd.Name)
		}
	case ui.Retrieve:
		if err := n.Forward.InitiateRetrieval(cmd.Name); err != nil {
			n.printf("retrieve failed: %s\n", err)
		}
	case ui.ShowTopology:
		n.showTopology()
	case ui.ShowNames:
		n.showNames()
	case ui.ShowInterestTable:
		n.showInterestTable()
	case ui.Leave:
		n.Leave()
	case ui.Exit:
		n.RequestExit()
	case ui.Help:
		n.printf("%s\n", ui.HelpText())
	}
}

func (n *Node) showTopology() {
	for _, nb := range n.Table.All() {
		n.printf("%s %s %s\n", nb.ID, nb.Addr, nb.Type)
	}
}

func (n *Node) showNames() {
	for _, name := range n.Objects.List() {
		n.printf("local  %s\n", name)
	}
	n.printf("cached %d entries\n", n.Cache.Len())
}

func (n *Node) showInterestTable() {
	for _, e := range n.PIT.All() {
		n.printf("%d %s", e.Key.ID, e.Key.Name)
		for _, i := range e.Ifaces {
			n.printf(" %s:%s", i.Sock, i.State)
		}
		n.printf("\n")
	}
}

func (n *Node) handleAccept(conn net.Conn) {
	nb := n.Topo.Accept(conn)
	go n.readNeighbor(nb)
}

func (n *Node) handleUDP(dg udpDatagram) {
	data := string(dg.data)
	outcome, err := n.Reg.HandleReply(data)
	if err != nil {
		logger.Printf(logger.DBG, "[node] dropping malformed registration reply: %s", err)
		return
	}
	if outcome == nil {
		return
	}
	if outcome.First {
		return
	}
	nb, err := n.Topo.ConnectTo(outcome.Peer)
	if err != nil {
		n.printf("join failed: could not connect to %s: %s\n", outcome.Peer, err)
		return
	}
	go n.readNeighbor(nb)
	if outcome.TwoNode {
		n.Table.Retype(nb.ID, transport.External)
	}
	if err := n.Reg.Reg(n.Reg.CurrentNet()); err != nil {
		logger.Printf(logger.WARN, "[node] REG after join failed: %s", err)
	}
}

func (n *Node) handleNeighborLine(nl neighborLine) {
	msg, err := wire.ParseTCPMessage(nl.line)
	if err != nil {
		logger.Printf(logger.DBG, "[node] dropping malformed message from %s: %s", nl.sock, err)
		return
	}
	switch m := msg.(type) {
	case *wire.Entry:
		n.Topo.HandleEntry(nl.sock, m)
	case *wire.Leave:
		n.Topo.HandleLeave(nl.sock, m)
		if n.leaving {
			n.pendingInternals--
		}
	case *wire.Interest:
		n.Forward.HandleInterest(nl.sock, m)
	case *wire.Object:
		n.Forward.HandleObject(nl.sock, m)
	case *wire.NoObject:
		n.Forward.HandleNoObject(nl.sock, m)
	}
}

func (n *Node) handleNeighborClosed(sock transport.SockID) {
	nb, ok := n.Table.Get(sock)
	if !ok {
		return
	}
	wasInternal := nb.Type == transport.Internal || nb.Type == transport.ExternalAndInternal
	wasExternal := nb.Type.IsExternal()
	n.Table.Remove(sock)
	n.Forward.NeighborGone(sock)
	if n.leaving && wasInternal {
		n.pendingInternals--
	}
	if wasExternal {
		n.Topo.RepairExternalLinkUnknownTarget()
	}
}
