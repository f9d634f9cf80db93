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

package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/regsvc"
	"ndnoverlay/wire"
)

func main() {
	var (
		ip       string
		port     int
		logLevel int
	)
	flag.StringVar(&ip, "ip", "0.0.0.0", "address to bind the registration service to")
	flag.IntVar(&port, "port", config.DefaultRegPort, "UDP port to bind the registration service to")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level")
	flag.Parse()
	logger.SetLogLevel(logLevel)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(ip), Port: port})
	if err != nil {
		logger.Printf(logger.ERROR, "[ndn-regd] failed to bind %s:%d: %s", ip, port, err)
		os.Exit(1)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println(logger.INFO, "[ndn-regd] terminating on signal")
		conn.Close()
	}()

	reg := regsvc.NewRegistry()
	logger.Printf(logger.INFO, "[ndn-regd] listening on %s:%d", ip, port)

	buf := make([]byte, config.MaxDatagramSize)
	for {
		size, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			logger.Println(logger.INFO, "[ndn-regd] Bye.")
			logger.Flush()
			return
		}
		req, err := wire.ParseUDPRequest(string(buf[:size]))
		var reply string
		if err != nil {
			logger.Printf(logger.DBG, "[ndn-regd] malformed request from %s: %s", from, err)
			reply = wire.RenderError("Unknown command")
		} else {
			reply = reg.Handle(req)
		}
		if _, err := conn.WriteToUDP([]byte(reply), from); err != nil {
			logger.Printf(logger.WARN, "[ndn-regd] reply to %s failed: %s", from, err)
		}
	}
}
