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

// Package regsvc implements the registration server's core logic: the
// {netId -> set<(ip,port)>} registry and the REG/UNREG/NODES request
// handlers (spec §4.1). The UDP socket itself lives in cmd/ndn-regd;
// this package only ever sees parsed requests and produces reply
// strings, so it can be tested without a network.
package regsvc

import (
	"fmt"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/wire"
)

// MaxMembersPerNet bounds one network's membership set (spec §3
// "bounded per network"); overflow is reported with an ERROR reply
// rather than silently dropped.
const MaxMembersPerNet = 256

// MaxNets bounds the number of distinct networks the registry tracks at
// once (spec §3 "bounded total nets"); overflow is reported with an
// ERROR reply rather than silently dropped.
const MaxNets = 10

// Registry holds the server-side {netId -> members} table. Processing
// is one datagram at a time (spec §4.1), so no locking is needed as
// long as callers serialize access the way the UDP read loop does.
type Registry struct {
	nets map[config.NetID]map[string]wire.Addr
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nets: make(map[config.NetID]map[string]wire.Addr)}
}

func memberKey(a wire.Addr) string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Handle dispatches one parsed UDP request and returns the reply text
// to send back to the requester.
func (r *Registry) Handle(req interface{}) string {
	switch m := req.(type) {
	case *wire.Reg:
		return r.handleReg(m)
	case *wire.Unreg:
		return r.handleUnreg(m)
	case *wire.Nodes:
		return r.handleNodes(m)
	default:
		return wire.RenderError("Unknown command")
	}
}

func (r *Registry) handleReg(m *wire.Reg) string {
	members := r.nets[m.Net]
	if members == nil {
		if len(r.nets) >= MaxNets {
			return wire.RenderError(fmt.Sprintf("too many networks (max %d)", MaxNets))
		}
		members = make(map[string]wire.Addr)
		r.nets[m.Net] = members
	}
	key := memberKey(m.Addr)
	if _, exists := members[key]; !exists {
		if len(members) >= MaxMembersPerNet {
			return wire.RenderError(fmt.Sprintf("network %s is full", m.Net))
		}
		members[key] = m.Addr
		logger.Printf(logger.INFO, "[regsvc] REG %s joined net %s", m.Addr, m.Net)
	}
	return wire.RenderOKReg()
}

func (r *Registry) handleUnreg(m *wire.Unreg) string {
	members := r.nets[m.Net]
	if members != nil {
		delete(members, memberKey(m.Addr))
		if len(members) == 0 {
			delete(r.nets, m.Net)
		}
		logger.Printf(logger.INFO, "[regsvc] UNREG %s left net %s", m.Addr, m.Net)
	}
	return wire.RenderOKUnreg()
}

func (r *Registry) handleNodes(m *wire.Nodes) string {
	reply := &wire.NodesList{Net: m.Net}
	for _, a := range r.nets[m.Net] {
		reply.Members = append(reply.Members, a)
	}
	return reply.Render()
}

// Count returns the number of registered members in net, for tests and
// the optional status endpoint.
func (r *Registry) Count(net config.NetID) int {
	return len(r.nets[net])
}

// NetCount returns the number of currently non-empty networks.
func (r *Registry) NetCount() int {
	return len(r.nets)
}
