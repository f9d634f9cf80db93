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

// Package ui translates stdin command lines into typed Command values
// (spec §4.7). It never touches node state directly, keeping the
// parsing leaf-level and independently testable.
package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ndnoverlay/config"
	"ndnoverlay/wire"
)

// Kind identifies which UI command a line named.
type Kind int

const (
	Join Kind = iota
	DirectJoin
	Create
	Delete
	Retrieve
	ShowTopology
	ShowNames
	ShowInterestTable
	Leave
	Exit
	Help
)

// Command is one parsed UI line.
type Command struct {
	Kind Kind
	Net  config.NetID
	Addr wire.Addr
	Name string
}

// ErrUsage is returned for malformed input; callers print a usage hint
// and keep running (spec §4.7: "never kills the loop").
var ErrUsage = errors.New("usage error")

var help = strings.Join([]string{
	"join <net> / j                        join a network",
	"direct join <ip> <port> / dj          direct join (0.0.0.0 0 creates net 000)",
	"create <name> / c                    add local object",
	"delete <name> / dl                   remove local object",
	"retrieve <name> / r                  initiate NDN retrieval",
	"show topology / st                   print neighbors",
	"show names / sn                      print local + cached objects",
	"show interest table / si             print the PIT",
	"leave / l                            initiate orderly departure",
	"exit / x                             shut down",
	"help                                 print this list",
}, "\n")

// HelpText returns the command list text (spec §4.7 "help").
func HelpText() string {
	return help
}

// Parse translates one stdin line into a Command.
func Parse(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrUsage
	}
	switch fields[0] {
	case "join", "j":
		if len(fields) != 2 {
			return nil, ErrUsage
		}
		net, err := config.ParseNetID(fields[1])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: Join, Net: net}, nil

	case "direct":
		if len(fields) != 4 || fields[1] != "join" {
			return nil, ErrUsage
		}
		addr, err := parseAddr(fields[2], fields[3])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: DirectJoin, Addr: addr}, nil
	case "dj":
		if len(fields) != 3 {
			return nil, ErrUsage
		}
		addr, err := parseAddr(fields[1], fields[2])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: DirectJoin, Addr: addr}, nil

	case "create", "c":
		name, err := singleArg(fields)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: Create, Name: name}, nil

	case "delete", "dl":
		name, err := singleArg(fields)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: Delete, Name: name}, nil

	case "retrieve", "r":
		name, err := singleArg(fields)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: Retrieve, Name: name}, nil

	case "show":
		switch {
		case len(fields) == 2 && fields[1] == "topology":
			return &Command{Kind: ShowTopology}, nil
		case len(fields) == 2 && fields[1] == "names":
			return &Command{Kind: ShowNames}, nil
		case len(fields) == 3 && fields[1] == "interest" && fields[2] == "table":
			return &Command{Kind: ShowInterestTable}, nil
		default:
			return nil, ErrUsage
		}
	case "st":
		return &Command{Kind: ShowTopology}, nil
	case "sn":
		return &Command{Kind: ShowNames}, nil
	case "si":
		return &Command{Kind: ShowInterestTable}, nil

	case "leave", "l":
		return &Command{Kind: Leave}, nil
	case "exit", "x":
		return &Command{Kind: Exit}, nil
	case "help":
		return &Command{Kind: Help}, nil

	default:
		return nil, ErrUsage
	}
}

func singleArg(fields []string) (string, error) {
	if len(fields) != 2 {
		return "", ErrUsage
	}
	if err := wire.ValidName(fields[1]); err != nil {
		return "", err
	}
	return fields[1], nil
}

func parseAddr(ip, portStr string) (wire.Addr, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return wire.Addr{}, fmt.Errorf("%w: bad port %q", ErrUsage, portStr)
	}
	if len(ip) == 0 {
		return wire.Addr{}, ErrUsage
	}
	return wire.Addr{IP: ip, Port: port}, nil
}
