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

package ndn

import (
	"testing"

	"ndnoverlay/events"
)

// TestCacheEvictsLeastRecentlyUsed exercises spec §8's literal LRU
// scenario: retrieve a, b, touch a, retrieve c; b is evicted.
func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2, nil)
	c.Admit("a")
	c.Admit("b")
	c.Contains("a") // touch: read-through counts as access (spec §9 open question)
	c.Admit("c")

	if !c.Contains("a") {
		t.Fatal("expected a to remain cached")
	}
	if !c.Contains("c") {
		t.Fatal("expected c to remain cached")
	}
	if c.Contains("b") {
		t.Fatal("expected b to have been evicted")
	}
}

func TestCacheEvictionEmitsEvent(t *testing.T) {
	hub := events.NewHub()
	ch := make(chan *events.Event, 4)
	hub.Register("test", events.NewListener(ch, nil))

	c := NewCache(1, hub)
	c.Admit("a")
	c.Admit("b")

	select {
	case ev := <-ch:
		if ev.Kind != events.EvCacheEvict || ev.Detail != "a" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected an eviction event")
	}
}
