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

// Package ndn implements the node's NDN forwarding logic: locally
// published objects, the LRU content cache, the Pending Interest Table,
// and INTEREST/OBJECT/NOOBJECT handling (spec §4.6).
package ndn

import "errors"

// ErrObjectsFull is returned when the local object set is at capacity.
var ErrObjectsFull = errors.New("local object set is full")

// MaxLocalObjects bounds the local object set (spec §3 "bounded set of
// names"); an implementation parameter, not spec-mandated.
const MaxLocalObjects = 1024

// Objects is the node's set of locally published object names.
type Objects struct {
	names map[string]bool
}

// NewObjects creates an empty local object set.
func NewObjects() *Objects {
	return &Objects{names: make(map[string]bool)}
}

// Create adds name to the local set. Idempotent: creating an existing
// name is a no-op success (spec §7 "duplicate state ... idempotent
// no-op").
func (o *Objects) Create(name string) error {
	if o.names[name] {
		return nil
	}
	if len(o.names) >= MaxLocalObjects {
		return ErrObjectsFull
	}
	o.names[name] = true
	return nil
}

// Delete removes name from the local set, reporting whether it was present.
func (o *Objects) Delete(name string) bool {
	if !o.names[name] {
		return false
	}
	delete(o.names, name)
	return true
}

// Has reports whether name is held locally.
func (o *Objects) Has(name string) bool {
	return o.names[name]
}

// List returns every locally held name, in no particular order.
func (o *Objects) List() []string {
	out := make([]string, 0, len(o.names))
	for n := range o.names {
		out = append(out, n)
	}
	return out
}
