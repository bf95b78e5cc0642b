// Command mcuhal-go boots the serial HAL on the selected board: the host
// simulator by default, an Atmega328 under `tinygo build -target=arduino
// -serial=none`.
package main

import (
	"context"
	"flag"

	"mcuhal-go/bus"
	"mcuhal-go/services/config"
	"mcuhal-go/services/hal"
	"mcuhal-go/services/heartbeat"
	"mcuhal-go/x/logx"
)

func main() {
	flag.Parse()
	defer logx.Flush()

	ctx := context.Background()
	b := bus.NewBus(8)

	go hal.Run(ctx, b.NewConnection("hal"))

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		logx.Errorf("heartbeat: %v", err)
	}

	cfg := config.NewConfigService(map[string]any{"hal": hal.InitialConfig()})
	if err := cfg.Start(config.WithDevice(ctx, hal.Board()), b.NewConnection("config")); err != nil {
		logx.Errorf("config: %v", err)
	}
	logx.Infof("boot: %s", hal.Board())

	select {}
}
