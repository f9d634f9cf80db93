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

// Package regclient implements the node-side half of the UDP
// registration protocol: REG/UNREG/NODES requests and the random peer
// pick on join (spec §4.5). It never touches the neighbor table or
// dials TCP connections itself; HandleReply returns a JoinOutcome that
// the node package acts on, keeping this package a leaf alongside
// topology in the dependency order from spec §2.
package regclient

import (
	"errors"
	"net"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/util"
	"ndnoverlay/wire"
)

// Sender abstracts sending one UDP datagram to the registration server,
// so tests can exercise join logic without a real socket.
type Sender interface {
	SendTo(addr *net.UDPAddr, data string) error
}

// NetSender is the production Sender, writing to a real *net.UDPConn.
type NetSender struct {
	Conn *net.UDPConn
}

// SendTo writes data as a single UDP datagram to addr.
func (s NetSender) SendTo(addr *net.UDPAddr, data string) error {
	_, err := s.Conn.WriteToUDP([]byte(data), addr)
	return err
}

// ErrUnexpectedReply is returned when a reply arrives with no matching
// outstanding request; callers should log and drop it (spec §7: parse
// errors are dropped, not fatal).
var ErrUnexpectedReply = errors.New("unexpected registration reply")

type pendingOp int

const (
	pendingNone pendingOp = iota
	pendingNodes
	pendingReg
	pendingUnreg
)

// JoinOutcome is what the node must do in response to a NODESLIST reply.
type JoinOutcome struct {
	// First is true when this node registered itself as the first
	// member; no TCP connect is needed.
	First bool
	// Peer is the randomly chosen member to connect to, valid when
	// !First.
	Peer wire.Addr
	// TwoNode is true when Peer was the only other member listed,
	// meaning the established link should be marked ExternalAndInternal
	// once ENTRY completes (spec §4.5 "initiator side of the two-node case").
	TwoNode bool
}

// Client drives the registration protocol for one node. It is not safe
// for concurrent use, matching the single-threaded event loop it is
// always called from.
type Client struct {
	sender     Sender
	server     *net.UDPAddr
	own        wire.Addr
	net        config.NetID
	pending    pendingOp
	Registered bool
}

// New creates a registration client bound to the server address and the
// node's own (ip,port) identity.
func New(sender Sender, server *net.UDPAddr, own wire.Addr) *Client {
	return &Client{sender: sender, server: server, own: own}
}

// CurrentNet returns the network this client last joined or registered
// with, valid only while Registered is true.
func (c *Client) CurrentNet() config.NetID {
	return c.net
}

// Join sends NODES <net> to look up the current membership (spec §4.5
// "join <net>"). The resulting NODESLIST reply is consumed by HandleReply.
func (c *Client) Join(net config.NetID) error {
	c.net = net
	c.pending = pendingNodes
	req := &wire.Nodes{Net: net}
	return c.sender.SendTo(c.server, req.Render())
}

// Reg sends REG <net> <ownIp> <ownPort> directly, bypassing NODES (used
// for "direct join 0.0.0.0 0" and completing a normal join once a peer
// has been picked).
func (c *Client) Reg(net config.NetID) error {
	c.net = net
	c.pending = pendingReg
	req := &wire.Reg{Net: net, Addr: c.own}
	return c.sender.SendTo(c.server, req.Render())
}

// Unreg sends UNREG <net> <ownIp> <ownPort> (spec §4.5 "leave").
func (c *Client) Unreg() error {
	if !c.Registered {
		return nil
	}
	c.pending = pendingUnreg
	req := &wire.Unreg{Net: c.net, Addr: c.own}
	return c.sender.SendTo(c.server, req.Render())
}

// HandleReply parses one reply datagram and advances the client's
// pending-request state machine. It returns a non-nil JoinOutcome only
// when a NODESLIST reply completes a Join.
func (c *Client) HandleReply(data string) (*JoinOutcome, error) {
	msg, err := wire.ParseUDPReply(data)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *wire.NodesList:
		return c.handleNodesList(m)
	case *wire.ErrorReply:
		logger.Printf(logger.WARN, "[regclient] server error: %s", m.Text)
		c.pending = pendingNone
		return nil, nil
	case struct{ OK bool }:
		return c.handleOK()
	default:
		return nil, ErrUnexpectedReply
	}
}

func (c *Client) handleNodesList(m *wire.NodesList) (*JoinOutcome, error) {
	if c.pending != pendingNodes {
		return nil, ErrUnexpectedReply
	}
	c.pending = pendingNone
	members := make([]wire.Addr, 0, len(m.Members))
	for _, a := range m.Members {
		if !a.Equal(c.own) {
			members = append(members, a)
		}
	}
	if len(members) == 0 {
		if err := c.Reg(c.net); err != nil {
			return nil, err
		}
		return &JoinOutcome{First: true}, nil
	}
	peer := members[util.RandIntn(len(members))]
	return &JoinOutcome{Peer: peer, TwoNode: len(members) == 1}, nil
}

func (c *Client) handleOK() (*JoinOutcome, error) {
	switch c.pending {
	case pendingReg:
		c.Registered = true
		c.pending = pendingNone
		logger.Printf(logger.INFO, "[regclient] registered with net %s", c.net)
	case pendingUnreg:
		c.Registered = false
		c.pending = pendingNone
		logger.Printf(logger.INFO, "[regclient] unregistered from net %s", c.net)
	default:
		return nil, ErrUnexpectedReply
	}
	return nil, nil
}
