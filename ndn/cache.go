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
	lru "github.com/hashicorp/golang-lru"

	"ndnoverlay/events"
)

// Cache is the bounded content cache (spec §3 "Content cache"): a
// presence-only LRU map from name to "present" marker. It wraps
// hashicorp/golang-lru rather than hand-rolling eviction bookkeeping.
type Cache struct {
	lru *lru.Cache
	hub *events.Hub
}

// NewCache creates a cache of the given capacity. hub may be nil.
func NewCache(capacity int, hub *events.Hub) *Cache {
	c := &Cache{hub: hub}
	onEvict := func(key interface{}, _ interface{}) {
		if c.hub != nil {
			c.hub.Emit(&events.Event{Kind: events.EvCacheEvict, Detail: key.(string)})
		}
	}
	l, err := lru.NewWithEvict(capacity, onEvict)
	if err != nil {
		// capacity <= 0 is a programmer error, not a condition callers
		// need to recover from at runtime.
		panic(err)
	}
	c.lru = l
	return c
}

// Admit inserts name into the cache, evicting the least-recently-used
// entry if the cache was already at capacity (spec §3 eviction policy).
func (c *Cache) Admit(name string) {
	c.lru.Add(name, true)
}

// Contains reports whether name is cached, touching it as most recently
// used on a hit. Read-through as a touch is the explicit resolution of
// the open question in spec §9 ("LRU on cache hit ... treat read-through
// as a touch").
func (c *Cache) Contains(name string) bool {
	_, ok := c.lru.Get(name)
	return ok
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
