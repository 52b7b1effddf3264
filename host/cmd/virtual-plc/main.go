// virtual-plc runs the simulated motor controller on a TCP socket so the
// bench host software can be exercised without hardware.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"heartbench/host/plcsim"
)

var (
	listenAddr = flag.String("listen", ":5020", "Address to listen on")
	gain       = flag.Float64("gain", 0.8, "Fraction of position error closed per tick")
	loadGain   = flag.Float64("load-gain", 2.5, "Load cell reading per mm of position error")
	dropAcks   = flag.Int("drop-acks", 0, "Drop every Nth command ack (0 disables)")
)

func main() {
	flag.Parse()

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("virtual-plc: listening on %s", ln.Addr())

	sim := plcsim.New(plcsim.Options{
		TrackingGain:    *gain,
		LoadGain:        *loadGain,
		DropEveryNthAck: *dropAcks,
	})

	if err := sim.Serve(ln); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
