// Package heartbeat logs a periodic liveness line carrying the HAL's
// current state.
package heartbeat

import (
	"context"
	"time"

	"mcuhal-go/bus"
	"mcuhal-go/types"
	"mcuhal-go/x/logx"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicHALState        = bus.T("hal", "state")
)

const DefaultInterval = time.Second

type Service struct {
	// Beat, when set, is called on every tick instead of logging.
	Beat func(t time.Time, hal types.HALState)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicHALState)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(DefaultInterval)
	defer tick.Stop()

	var hal types.HALState
	for {
		select {
		case <-ctx.Done():
			logx.Info("heartbeat: stopping")
			return
		case t := <-tick.C:
			if s.Beat != nil {
				s.Beat(t, hal)
				continue
			}
			logx.Infof("heartbeat: %s hal=%s/%s", t.Format("15:04:05"), hal.Level, hal.Status)
		case m := <-stateSub.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				hal = st
			}
		case m := <-cfgSub.Channel():
			if iv, ok := interval(m.Payload); ok {
				tick.Reset(iv)
				logx.Infof("heartbeat: interval set to %v", iv)
			} else {
				logx.Warningf("heartbeat: ignoring config %v", m.Payload)
			}
		}
	}
}

// interval reads {"interval": seconds}.
func interval(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	var secs float64
	switch v := m["interval"].(type) {
	case float64:
		secs = v
	case int:
		secs = float64(v)
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
