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

package util

import (
	"math/rand"
	"sync"
	"time"
)

// Rnd is the package-wide random source used for peer selection on join
// and PIT identifier allocation. It defaults to a time-seeded source but
// can be replaced wholesale in tests with SetRandSource for deterministic
// runs (spec note: "Seeding is unspecified; tests should inject a
// deterministic source").
var (
	rndMu  sync.Mutex
	rndSrc = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// SetRandSource replaces the package-wide random source. Intended for
// tests that need reproducible peer selection / PIT id sequences.
func SetRandSource(r *rand.Rand) {
	rndMu.Lock()
	defer rndMu.Unlock()
	rndSrc = r
}

// RandIntn returns a non-negative random integer in [0,n).
func RandIntn(n int) int {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rndSrc.Intn(n)
}

// RandByte returns a random byte in [0,255], used for PIT interest ids.
func RandByte() byte {
	rndMu.Lock()
	defer rndMu.Unlock()
	return byte(rndSrc.Intn(256))
}
