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

package transport

import (
	"bytes"

	"ndnoverlay/config"
)

// RecvBuffer accumulates inbound stream bytes for one neighbor until
// newline-terminated messages can be extracted (spec §4.3). Capacity is
// 2*MaxDatagramSize; if it would overflow before a newline arrives, the
// buffer is reset and the offending fragment dropped rather than
// killing the connection.
type RecvBuffer struct {
	buf []byte
}

// NewRecvBuffer creates an empty buffer at its fixed capacity.
func NewRecvBuffer() *RecvBuffer {
	return &RecvBuffer{buf: make([]byte, 0, config.NeighborBufCap)}
}

// Feed appends newly-read bytes and extracts every complete
// (non-empty, newline-stripped) line. Any unterminated tail is kept for
// the next call. If appending would overflow capacity before a newline
// is found, the buffer is reset and dropped reports true.
func (b *RecvBuffer) Feed(data []byte) (lines []string, dropped bool) {
	if len(b.buf)+len(data) > config.NeighborBufCap {
		b.buf = b.buf[:0]
		dropped = true
		return
	}
	b.buf = append(b.buf, data...)
	start := 0
	for {
		idx := bytes.IndexByte(b.buf[start:], '\n')
		if idx < 0 {
			break
		}
		end := start + idx
		if end > start {
			lines = append(lines, string(b.buf[start:end]))
		}
		start = end + 1
	}
	// compact the unterminated tail to the front of the backing array so
	// the buffer never grows beyond its fixed capacity.
	remaining := len(b.buf) - start
	copy(b.buf[:remaining], b.buf[start:])
	b.buf = b.buf[:remaining]
	return
}
