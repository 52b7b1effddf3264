// benchctl runs a waveform on the heart test bench: it loads the bench
// configuration and a waveform file, validates and fits the waveform,
// compiles it onto the controller's tick grid, and streams it while serving
// telemetry to the configured monitors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heartbench/bench"
	"heartbench/host/monitor"
	"heartbench/host/plc"
	"heartbench/host/transport"
	"heartbench/profile"
	"heartbench/telemetry"
	"heartbench/waveform"
)

var (
	configPath   = flag.String("config", "bench.json", "Bench configuration file")
	waveformPath = flag.String("waveform", "", "Waveform file to run (required)")
	dryRun       = flag.Bool("dry-run", false, "Fit and compile only; do not connect")
	showFeatures = flag.Bool("features", false, "Print the waveform's kinematic features")
)

func main() {
	flag.Parse()

	if *waveformPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -waveform is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := bench.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	wf, err := waveform.Load(*waveformPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	method, err := waveform.ParseMethod(wf.Method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	points := waveform.SortPoints(wf.Points)
	if cfg.Waveform.Mapping != nil {
		points = cfg.Waveform.Mapping.Apply(points)
	}

	// File limits bound the waveform author's intent; config limits bound
	// the machine. Both must hold.
	for _, limits := range []waveform.Limits{wf.Limits, cfg.Waveform.Limits} {
		if err := waveform.Validate(points, limits); err != nil {
			fmt.Fprintf(os.Stderr, "Error: waveform rejected: %v\n", err)
			os.Exit(1)
		}
	}

	if *showFeatures {
		f := bench.ComputeFeatures(points)
		fmt.Printf("max velocity:     %8.3f mm/s\n", f.MaxVelocity)
		fmt.Printf("max acceleration: %8.3f mm/s^2\n", f.MaxAcceleration)
		fmt.Printf("max deceleration: %8.3f mm/s^2\n", f.MaxDeceleration)
		fmt.Printf("max jerk:         %8.3f mm/s^3\n", f.MaxJerk)
	}

	sampled, err := waveform.Fit(points, method, cfg.Waveform.SampleInterval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: fit failed: %v\n", err)
		os.Exit(1)
	}

	tickPeriod := cfg.Link.TickPeriodMS / 1000.0
	prof, err := profile.Compile(sampled, tickPeriod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: compile failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Compiled %d commands over %.3f s (tick period %.1f ms)\n",
		prof.Len(), sampled.Duration(), cfg.Link.TickPeriodMS)

	if *dryRun {
		return
	}

	port, err := openPort(cfg.Link)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ring := telemetry.NewRing(cfg.Monitor.RingSize)
	sessCfg := sessionConfig(cfg.Link)

	var pub *monitor.Publisher
	if cfg.Monitor.MQTTBroker != "" {
		pub, err = monitor.NewPublisher(cfg.Monitor.MQTTBroker, "heartbench-host", cfg.Monitor.TopicPrefix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer pub.Close()
		sessCfg.Notify = func(st plc.State) { pub.PublishState(st.String()) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pub != nil {
		go pub.Run(ctx, ring, 100*time.Millisecond)
	}
	if cfg.Monitor.WebAddr != "" {
		web := monitor.NewWebServer(ring, 100*time.Millisecond)
		go func() {
			if err := web.ListenAndServe(cfg.Monitor.WebAddr); err != nil {
				fmt.Fprintf(os.Stderr, "Error: web server: %v\n", err)
			}
		}()
	}

	sess := plc.NewSession(port, prof, ring, sessCfg)
	if err := sess.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := sess.Run(ctx)

	if cfg.Monitor.RecordPath != "" {
		if err := monitor.SaveCSV(cfg.Monitor.RecordPath, ring); err != nil {
			fmt.Fprintf(os.Stderr, "Error: recording: %v\n", err)
		} else {
			fmt.Printf("Recorded %d feedback samples to %s\n", ring.Len(), cfg.Monitor.RecordPath)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	fmt.Printf("Run complete: %d/%d commands acknowledged\n", prof.Len()-prof.Remaining(), prof.Len())
}

func openPort(link bench.LinkConfig) (transport.Port, error) {
	switch link.Transport {
	case "serial":
		cfg := transport.DefaultSerialConfig(link.Device)
		cfg.Baud = link.Baud
		return transport.OpenSerial(cfg)
	case "tcp":
		timeout := time.Duration(link.HandshakeTimeoutMS) * time.Millisecond
		return transport.DialTCP(link.Address, timeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", link.Transport)
	}
}

func sessionConfig(link bench.LinkConfig) plc.Config {
	cfg := plc.DefaultConfig()
	cfg.TickPeriod = time.Duration(link.TickPeriodMS * float64(time.Millisecond))
	cfg.HandshakeTimeout = time.Duration(link.HandshakeTimeoutMS) * time.Millisecond
	cfg.AckTimeout = time.Duration(link.AckTimeoutMS) * time.Millisecond
	cfg.RetryLimit = link.RetryLimit
	cfg.RetryBackoff = time.Duration(link.RetryBackoffMS) * time.Millisecond
	return cfg
}
