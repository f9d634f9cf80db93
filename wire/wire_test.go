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

package wire

import (
	"strings"
	"testing"

	"ndnoverlay/config"
)

func TestParseUDPRequestREG(t *testing.T) {
	msg, err := ParseUDPRequest("REG 042 1.0.0.1 5001")
	if err != nil {
		t.Fatal(err)
	}
	reg, ok := msg.(*Reg)
	if !ok {
		t.Fatalf("got %T, want *Reg", msg)
	}
	if reg.Net != 42 || reg.Addr.IP != "1.0.0.1" || reg.Addr.Port != 5001 {
		t.Errorf("unexpected parse result: %+v", reg)
	}
	if got := reg.Render(); got != "REG 042 1.0.0.1 5001" {
		t.Errorf("Render() = %q", got)
	}
}

func TestParseUDPRequestUnknownVerb(t *testing.T) {
	_, err := ParseUDPRequest("BOGUS 1 2 3")
	if err != ErrUnknownVerb {
		t.Fatalf("expected ErrUnknownVerb, got %v", err)
	}
}

func TestParseUDPReplyNodesList(t *testing.T) {
	data := "NODESLIST 042\n1.0.0.1 5001\n1.0.0.2 5002"
	msg, err := ParseUDPReply(data)
	if err != nil {
		t.Fatal(err)
	}
	nl, ok := msg.(*NodesList)
	if !ok {
		t.Fatalf("got %T, want *NodesList", msg)
	}
	if nl.Net != 42 || len(nl.Members) != 2 {
		t.Fatalf("unexpected parse result: %+v", nl)
	}
	if !nl.Members[0].Equal(Addr{"1.0.0.1", 5001}) {
		t.Errorf("member[0] = %+v", nl.Members[0])
	}
}

func TestParseUDPReplyEmptyNodesList(t *testing.T) {
	msg, err := ParseUDPReply("NODESLIST 042\n")
	if err != nil {
		t.Fatal(err)
	}
	nl := msg.(*NodesList)
	if len(nl.Members) != 0 {
		t.Errorf("expected no members, got %d", len(nl.Members))
	}
}

func TestParseUDPReplyError(t *testing.T) {
	msg, err := ParseUDPReply("ERROR: network full")
	if err != nil {
		t.Fatal(err)
	}
	er, ok := msg.(*ErrorReply)
	if !ok {
		t.Fatalf("got %T, want *ErrorReply", msg)
	}
	if er.Text != "network full" {
		t.Errorf("Text = %q", er.Text)
	}
}

func TestNetIDRangeRejectedInMessage(t *testing.T) {
	if _, err := ParseUDPRequest("NODES 1000"); err == nil {
		t.Error("expected error for net id 1000")
	}
	if _, err := ParseUDPRequest("NODES -1"); err == nil {
		t.Error("expected error for net id -1")
	}
}

func TestParseTCPTopology(t *testing.T) {
	msg, err := ParseTCPMessage("ENTRY 1.0.0.2 5002")
	if err != nil {
		t.Fatal(err)
	}
	e, ok := msg.(*Entry)
	if !ok {
		t.Fatalf("got %T, want *Entry", msg)
	}
	if e.Addr.Port != 5002 {
		t.Errorf("unexpected address: %+v", e.Addr)
	}

	msg, err = ParseTCPMessage("LEAVE 1.0.0.1 5001")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := msg.(*Leave); !ok {
		t.Fatalf("got %T, want *Leave", msg)
	}
}

func TestParseTCPNdn(t *testing.T) {
	msg, err := ParseTCPMessage("INTEREST 17 foo")
	if err != nil {
		t.Fatal(err)
	}
	it, ok := msg.(*Interest)
	if !ok {
		t.Fatalf("got %T, want *Interest", msg)
	}
	if it.ID != 17 || it.Name != "foo" {
		t.Errorf("unexpected parse: %+v", it)
	}
	if got := it.Render(); got != "INTEREST 17 foo" {
		t.Errorf("Render() = %q", got)
	}
}

func TestInterestIDBoundaries(t *testing.T) {
	if _, err := ParseID("0"); err != nil {
		t.Error(err)
	}
	if _, err := ParseID("255"); err != nil {
		t.Error(err)
	}
	if _, err := ParseID("256"); err == nil {
		t.Error("expected error for id 256")
	}
	if _, err := ParseID("-1"); err == nil {
		t.Error("expected error for id -1")
	}
}

func TestNameLengthBoundaries(t *testing.T) {
	ok100 := strings.Repeat("a", 100)
	if err := ValidName(ok100); err != nil {
		t.Errorf("100-char name should be valid: %v", err)
	}
	bad101 := strings.Repeat("a", 101)
	if err := ValidName(bad101); err == nil {
		t.Error("101-char name should be rejected")
	}
}

func TestNameRejectsWhitespace(t *testing.T) {
	if err := ValidName("has space"); err == nil {
		t.Error("name with whitespace should be rejected")
	}
}

func TestMalformedMessageDropped(t *testing.T) {
	if _, err := ParseTCPMessage("INTEREST notanumber foo"); err == nil {
		t.Error("expected parse error for non-numeric id")
	}
	if _, err := ParseTCPMessage("ENTRY onlyip"); err == nil {
		t.Error("expected parse error for short ENTRY")
	}
}

func TestNetIDZeroPad(t *testing.T) {
	n, _ := config.ParseNetID("7")
	req := &Nodes{Net: n}
	if got := req.Render(); got != "NODES 007" {
		t.Errorf("Render() = %q, want NODES 007", got)
	}
}
