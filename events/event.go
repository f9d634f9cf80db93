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

// Package events carries internal state-transition notifications
// (neighbor up/down, PIT create/retire, cache eviction) between the node
// packages without introducing an import cycle between node and ndn.
//
// The wire protocols never depend on these; they exist so tests and other
// in-process listeners can observe state transitions without polling.
// The optional HTTP status endpoint does not listen on them; it reads
// the snapshot the event loop publishes. A single event-kind filter covers every listener's needs,
// since this node has no per-message-type routing to speak of.
package events

// Event kinds
const (
	EvNeighborUp = iota
	EvNeighborDown
	EvPITCreate
	EvPITRetire
	EvCacheEvict
)

// Event sent to listeners.
type Event struct {
	Kind   int    // event kind (Ev*)
	Detail string // human-readable detail (address, name, id, ...)
}

// EventFilter restricts a Listener to a subset of event kinds; an empty
// filter matches everything.
type EventFilter struct {
	kinds map[int]bool
}

// NewEventFilter creates a new empty filter instance.
func NewEventFilter() *EventFilter {
	return &EventFilter{kinds: make(map[int]bool)}
}

// Add adds an event kind to the filter.
func (f *EventFilter) Add(kind int) {
	f.kinds[kind] = true
}

// Check returns true if the event kind is matched by the filter, or the
// filter is empty.
func (f *EventFilter) Check(kind int) bool {
	if len(f.kinds) == 0 {
		return true
	}
	return f.kinds[kind]
}

// Listener for node events.
type Listener struct {
	ch     chan *Event
	filter *EventFilter
}

// NewListener for a given filter and receiving channel. A nil filter
// matches every event.
func NewListener(ch chan *Event, f *EventFilter) *Listener {
	if f == nil {
		f = NewEventFilter()
	}
	return &Listener{ch: ch, filter: f}
}

// Hub dispatches events to registered listeners by name.
type Hub struct {
	listeners map[string]*Listener
}

// NewHub creates an empty event hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]*Listener)}
}

// Register a named listener.
func (h *Hub) Register(name string, l *Listener) {
	h.listeners[name] = l
}

// Unregister a named listener.
func (h *Hub) Unregister(name string) {
	delete(h.listeners, name)
}

// Emit dispatches an event to every listener whose filter matches.
// Delivery is non-blocking: a listener with a full channel misses the
// event rather than stalling the (single-threaded) caller.
func (h *Hub) Emit(ev *Event) {
	for _, l := range h.listeners {
		if !l.filter.Check(ev.Kind) {
			continue
		}
		select {
		case l.ch <- ev:
		default:
		}
	}
}
