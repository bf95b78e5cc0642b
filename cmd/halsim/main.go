// Command halsim runs the HAL on the host simulator behind an interactive
// shell. Commands can also come from a script (-script) or the command
// line (-e).
//
//	halsim                          interactive
//	halsim -e write console 'hi\n'  one command
//	halsim -script smoke.hal        one command per line
//	halsim -tty /dev/ttyUSB0        adds a "tty" device on a host port
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"mcuhal-go/bus"
	"mcuhal-go/services/config"
	"mcuhal-go/services/hal"
	halcfg "mcuhal-go/services/hal/config"
	"mcuhal-go/types"
)

var (
	evalOnly   = flag.Bool("e", false, "run the command line arguments as one command and exit")
	scriptPath = flag.String("script", "", "run commands from file and exit")
	ttyPath    = flag.String("tty", "", "host serial device exposed as device \"tty\"")
	ttyBaud    = flag.Uint("tty-baud", 115200, "baud for -tty")
	readyWait  = flag.Duration("ready", 2*time.Second, "how long to wait for the HAL to configure")
)

func bootConfig() types.HALConfig {
	cfg := hal.InitialConfig()
	if *ttyPath != "" {
		cfg.Devices = append(cfg.Devices, types.Device{
			ID:   "tty",
			Type: halcfg.TypeUART,
			Params: halcfg.UARTParams{
				TTY:    *ttyPath,
				Baud:   uint32(*ttyBaud),
				Reader: halcfg.Reader{Mode: halcfg.ModeLines},
			},
		})
	}
	return cfg
}

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(32)
	ui := b.NewConnection("ui")
	state := ui.Subscribe(hal.StateTopic())

	go hal.Run(ctx, b.NewConnection("hal"))

	cfgSvc := config.NewConfigService(map[string]any{"hal": bootConfig()})
	if err := cfgSvc.Start(config.WithDevice(ctx, hal.Board()), b.NewConnection("config")); err != nil {
		glog.Exitf("halsim: %v", err)
	}
	if st, ok := waitReady(state, *readyWait); !ok {
		glog.Errorf("halsim: HAL not ready: %s/%s %s", st.Level, st.Status, st.Error)
	}
	ui.Unsubscribe(state)

	sh := NewShell(ui)
	defer sh.Close()

	switch {
	case *scriptPath != "":
		f, err := os.Open(*scriptPath)
		if err != nil {
			glog.Exitf("halsim: %v", err)
		}
		defer f.Close()
		if err := sh.RunScript(f); err != nil {
			glog.Exitf("halsim: %v", err)
		}
	case *evalOnly:
		if err := sh.Shell.Process(flag.Args()...); err != nil {
			glog.Exitf("halsim: %v", err)
		}
	default:
		sh.Shell.Run()
	}
}

func waitReady(sub *bus.Subscription, d time.Duration) (types.HALState, bool) {
	var last types.HALState
	deadline := time.After(d)
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				last = st
				switch st.Level {
				case "ready":
					return st, true
				case "error":
					return st, false
				}
			}
		case <-deadline:
			return last, false
		}
	}
}
