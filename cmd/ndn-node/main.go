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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/bfix/gospel/logger"

	"ndnoverlay/config"
	"ndnoverlay/node"
	"ndnoverlay/wire"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ndn-node [-status addr] [-L level] <ownIp> <ownPort> [regIp] [regPort]")
	flag.PrintDefaults()
}

func main() {
	var (
		statusAddr string
		logLevel   int
	)
	flag.StringVar(&statusAddr, "status", "", "optional HTTP status endpoint address (host:port)")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 && len(args) != 4 {
		usage()
		os.Exit(1)
	}
	logger.SetLogLevel(logLevel)

	ownPort, err := strconv.Atoi(args[1])
	if err != nil {
		logger.Printf(logger.ERROR, "[ndn-node] bad port %q: %s", args[1], err)
		os.Exit(1)
	}
	own := wire.Addr{IP: args[0], Port: ownPort}

	regIP := config.DefaultRegIP
	regPort := config.DefaultRegPort
	if len(args) == 4 {
		regIP = args[2]
		if regPort, err = strconv.Atoi(args[3]); err != nil {
			logger.Printf(logger.ERROR, "[ndn-node] bad registration port %q: %s", args[3], err)
			os.Exit(1)
		}
	}

	n, err := node.New(node.Config{
		Own:        own,
		RegIP:      regIP,
		RegPort:    regPort,
		StatusAddr: statusAddr,
		Out:        os.Stdout,
	})
	if err != nil {
		logger.Printf(logger.ERROR, "[ndn-node] init failed: %s", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println(logger.INFO, "[ndn-node] terminating on signal")
		cancel()
	}()

	logger.Printf(logger.INFO, "[ndn-node] listening on %s", own.HostPort())
	n.Start(ctx, os.Stdin)
	cancel()
	logger.Println(logger.INFO, "[ndn-node] Bye.")
	logger.Flush()
}
