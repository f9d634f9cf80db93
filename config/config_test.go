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

package config

import "testing"

func TestParseNetIDBoundaries(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		want    int
	}{
		{"000", false, 0},
		{"999", false, 999},
		{"042", false, 42},
		{"-1", true, 0},
		{"1000", true, 0},
		{"abc", true, 0},
	}
	for _, c := range cases {
		got, err := ParseNetID(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseNetID(%q) expected error, got nil", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseNetID(%q) unexpected error: %v", c.in, err)
		}
		if got.Int() != c.want {
			t.Errorf("ParseNetID(%q) = %d, want %d", c.in, got.Int(), c.want)
		}
	}
}

func TestNetIDStringZeroPad(t *testing.T) {
	n, err := ParseNetID("42")
	if err != nil {
		t.Fatal(err)
	}
	if got := n.String(); got != "042" {
		t.Errorf("String() = %q, want %q", got, "042")
	}
}
