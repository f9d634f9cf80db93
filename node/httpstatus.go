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

package node

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"
)

// NeighborInfo is one row of a status snapshot's neighbor table.
type NeighborInfo struct {
	ID   string
	Addr string
	Type string
}

// PITInfo is one row of a status snapshot's PIT listing.
type PITInfo struct {
	ID     byte
	Name   string
	Ifaces []string
}

// Snapshot is a read-only copy of the node's observable state, taken
// once per event-loop dispatch (see Node.run's call to Status.Update)
// so the HTTP status endpoint never touches live state directly.
type Snapshot struct {
	NetID         string
	Neighbors     []NeighborInfo
	LocalObjects  []string
	CachedObjects int
	PIT           []PITInfo
}

// StatusServer is an optional, read-only HTTP/JSON-RPC status endpoint
// exposing one "Status.Get" method, narrowed from a registrable
// multi-module router down to a single method since this node has only
// one thing to report.
type StatusServer struct {
	mu       sync.RWMutex
	snapshot Snapshot
	router   *mux.Router
	srv      *http.Server
}

// NewStatusServer builds the router and JSON-RPC service but does not
// bind a socket yet; call Start to do that.
func NewStatusServer(addr string) *StatusServer {
	s := &StatusServer{router: mux.NewRouter()}
	rpcSrv := rpc.NewServer()
	rpcSrv.RegisterCodec(json.NewCodec(), "application/json")
	if err := rpcSrv.RegisterService(&statusService{owner: s}, "Status"); err != nil {
		// a fixed, hand-written service registration failing indicates a
		// programming error, not a runtime condition.
		panic(err)
	}
	s.router.Handle("/rpc", rpcSrv)
	s.srv = &http.Server{
		Handler:      s.router,
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Update replaces the published snapshot. Safe to call from the event
// loop goroutine while the HTTP goroutine concurrently serves requests.
func (s *StatusServer) Update(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

func (s *StatusServer) current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Start runs the HTTP server until ctx is cancelled (mirrors the
// teacher's StartRPC(ctx) shape).
func (s *StatusServer) Start(ctx context.Context) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf(logger.WARN, "[status] server failed: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutCtx); err != nil {
			logger.Printf(logger.WARN, "[status] shutdown failed: %s", err)
		}
	}()
}

// GetArgs is the (empty) argument struct for Status.Get.
type GetArgs struct{}

// GetReply carries the current snapshot back to the caller.
type GetReply struct {
	Snapshot Snapshot
}

// statusService is the gorilla/rpc service exposing Status.Get.
type statusService struct {
	owner *StatusServer
}

// Get returns the most recently published snapshot.
func (h *statusService) Get(_ *http.Request, _ *GetArgs, reply *GetReply) error {
	reply.Snapshot = h.owner.current()
	return nil
}
