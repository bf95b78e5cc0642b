// services/hal/internal/service/service.go
package service

import (
	"context"
	"errors"
	"time"

	"mcuhal-go/bus"
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/config"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/halerr"
	"mcuhal-go/services/hal/internal/registry"
	"mcuhal-go/services/hal/internal/softserial"
	"mcuhal-go/services/hal/internal/timer"
	"mcuhal-go/services/hal/internal/uartio"
	"mcuhal-go/services/hal/internal/util"
	"mcuhal-go/types"
	"mcuhal-go/x/logx"
)

// DefaultPollPeriod is how often the loop services the hardware when idle.
const DefaultPollPeriod = time.Millisecond

// warnEvery limits overflow and truncation warnings per device.
const warnEvery = 5 * time.Second

type capKey struct {
	domain string
	kind   string
	name   string
}

type devEntry struct {
	adaptor halcore.Adaptor
	caps    []halcore.CapInfo
	cancel  func() // reader registration, nil without one
	echo    bool

	overflowed bool
	latched    bool
	last       types.SerialStatus // loss counters at the previous status pass
	lastWarn   time.Time
}

// statusSource is implemented by adaptors that can snapshot their queues.
type statusSource interface {
	Status() types.SerialStatus
}

// Service owns the platform, every interrupt-side structure and the
// devices built from config. All of it is touched from Run's goroutine
// only, which stands in for the MCU's application context.
type Service struct {
	conn   *bus.Connection
	plat   halcore.Platform
	ic     halcore.InterruptController
	buses  halcore.I2CBusFactory
	soft   *softserial.Registry
	claims *registry.Claims
	reader *uartio.Worker

	tics    *timer.TicCounter
	statusT *timer.SoftwareTimer

	devices  map[string]*devEntry
	capIndex map[capKey]string

	pollEvery  time.Duration
	configured bool
	lostIRQ    uint32
}

type Option func(*Service)

// WithPollPeriod sets the hardware poll period.
func WithPollPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollEvery = d
		}
	}
}

func New(conn *bus.Connection, plat halcore.Platform, opts ...Option) *Service {
	s := &Service{
		conn:      conn,
		plat:      plat,
		ic:        plat.Interrupts(),
		soft:      softserial.NewRegistry(),
		claims:    registry.NewClaims(),
		reader:    uartio.New(64),
		devices:   map[string]*devEntry{},
		capIndex:  map[capKey]string{},
		pollEvery: DefaultPollPeriod,
	}
	if b, ok := plat.(halcore.I2CBusFactory); ok {
		s.buses = b
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigHAL())
	ctrlSub := s.conn.Subscribe(ctrlWildcard())
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)
	logx.Infof("hal: started at %d Hz, waiting for config", s.plat.CPUHz())

	tick := time.NewTicker(s.pollEvery)
	defer tick.Stop()

	events := s.reader.Events()
	for {
		select {
		case <-ctx.Done():
			for id := range s.devices {
				s.removeDevice(id)
			}
			s.publishState("stopped", "context_cancelled", nil)
			logx.Info("hal: stopped")
			return

		case msg := <-cfgSub.Channel():
			cfg, err := util.As[types.HALConfig](msg.Payload)
			if err != nil {
				s.publishState("error", "config_wrong_type", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				logx.Warningf("hal: config: %v", err)
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case now := <-tick.C:
			s.poll(now)

		case ev := <-events:
			s.handleEvent(ev)
		}
	}
}

// poll is one iteration of the application loop: let the hardware catch
// up, frame received bytes and run the status timer.
func (s *Service) poll(now time.Time) {
	s.plat.Poll(now)
	s.reader.Poll(now)
	if s.statusT != nil && s.statusT.HasPeriodPassed() {
		s.publishAllStatus()
	}
}

// ---- config ----

func (s *Service) applyConfig(ctx context.Context, cfg types.HALConfig) error {
	config.Normalise(&cfg)
	if cfg.CPUHz != 0 && cfg.CPUHz != s.plat.CPUHz() {
		return halerr.ErrClockMismatch
	}
	if err := s.startTimers(cfg); err != nil {
		return err
	}

	// Release departing devices first so their pins, vectors and buffers
	// are free for whatever replaces them.
	seen := make(map[string]struct{}, len(cfg.Devices))
	for i := range cfg.Devices {
		seen[cfg.Devices[i].ID] = struct{}{}
	}
	for id := range s.devices {
		if _, ok := seen[id]; !ok {
			s.removeDevice(id)
		}
	}

	var errs []error
	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if _, exists := s.devices[d.ID]; exists {
			continue
		}
		if err := s.addDevice(ctx, d); err != nil {
			logx.Warningf("hal: device %q (%s): %v", d.ID, d.Type, err)
			errs = append(errs, err)
		}
	}

	if !s.configured {
		s.configured = true
		s.ic.Enable()
	}
	if len(errs) > 0 {
		return &errcode.E{C: errcode.Of(errs[0]), Op: "hal.applyConfig", Err: errors.Join(errs...)}
	}
	return nil
}

// startTimers installs the tic counter on the first config and follows
// status period changes afterwards.
func (s *Service) startTimers(cfg types.HALConfig) error {
	if s.tics == nil {
		tics, err := timer.NewTicCounter(cfg.TicsPerSecond)
		if err != nil {
			return err
		}
		if err := s.ic.Install(s.plat.TimerVector(), tics.Tick); err != nil {
			return err
		}
		s.plat.EnableTicker(cfg.TicsPerSecond)
		s.tics = tics
	} else if cfg.TicsPerSecond != s.tics.TicsPerSecond() {
		logx.Warningf("hal: tics_per_second change to %d ignored", cfg.TicsPerSecond)
	}

	period := max(s.tics.MillisToTics(cfg.StatusPeriodMS), 1)
	if s.statusT == nil {
		t, err := timer.NewSoftwareTimer(s.tics, period)
		if err != nil {
			return err
		}
		s.statusT = t
	} else if s.statusT.Period() != period {
		s.statusT.Disable()
		if err := s.statusT.SetPeriod(period); err != nil {
			return err
		}
	}
	if !s.statusT.Enabled() {
		s.statusT.Enable()
	}
	return nil
}

func (s *Service) addDevice(ctx context.Context, d *types.Device) error {
	b, ok := registry.Lookup(d.Type)
	if !ok {
		return &errcode.E{C: halerr.ErrNoBuilder.C, Op: "hal.build", Msg: d.Type}
	}
	out, err := b.Build(registry.BuildInput{
		Ctx:        ctx,
		Plat:       s.plat,
		Buses:      s.buses,
		Soft:       s.soft,
		Claims:     s.claims,
		DeviceID:   d.ID,
		Type:       d.Type,
		ParamsJSON: d.Params,
		BusRefType: d.BusRef.Type,
		BusRefID:   d.BusRef.ID,
	})
	if err != nil {
		s.claims.ReleaseAll(d.ID)
		return err
	}

	ent := &devEntry{adaptor: out.Adaptor}
	if u := out.UART; u != nil && u.Port != nil {
		cancel, err := s.reader.Register(uartio.ReaderCfg{
			DevID:     d.ID,
			Port:      u.Port,
			Mode:      u.Mode,
			MaxFrame:  u.MaxFrame,
			IdleFlush: time.Duration(u.IdleFlushMS) * time.Millisecond,
		})
		if err != nil {
			out.Adaptor.Close()
			s.claims.ReleaseAll(d.ID)
			return err
		}
		ent.cancel = cancel
		ent.echo = u.PublishTXEcho
	}

	now := time.Now()
	for _, ci := range out.Adaptor.Capabilities() {
		if ci.Name == "" {
			ci.Name = d.ID
		}
		ent.caps = append(ent.caps, ci)
		s.capIndex[capKey{ci.Domain, ci.Kind, ci.Name}] = d.ID
		s.pubRet(capInfo(ci.Domain, ci.Kind, ci.Name), ci.Info)
		s.pubRet(capStatus(ci.Domain, ci.Kind, ci.Name), types.CapabilityStatus{Link: types.LinkUp, TS: now.UnixMilli()})
	}
	s.devices[d.ID] = ent
	logx.Infof("hal: device %q (%s) up", d.ID, d.Type)
	return nil
}

func (s *Service) removeDevice(id string) {
	ent, ok := s.devices[id]
	if !ok {
		return
	}
	now := time.Now().UnixMilli()
	for _, ci := range ent.caps {
		s.pubRet(capInfo(ci.Domain, ci.Kind, ci.Name), nil)
		s.pubRet(capStatus(ci.Domain, ci.Kind, ci.Name), types.CapabilityStatus{Link: types.LinkDown, TS: now})
		delete(s.capIndex, capKey{ci.Domain, ci.Kind, ci.Name})
	}
	if ent.cancel != nil {
		ent.cancel()
	}
	if err := ent.adaptor.Close(); err != nil {
		logx.Warningf("hal: close %q: %v", id, err)
	}
	s.claims.ReleaseAll(id)
	delete(s.devices, id)
	logx.Infof("hal: device %q removed", id)
}

// ---- control ----

func (s *Service) handleControl(m *bus.Message) {
	if !s.configured {
		s.replyErr(m, errcode.HALNotReady)
		return
	}
	key, verb, ok := parseCtrl(m.Topic)
	if !ok {
		s.replyErr(m, halerr.ErrInvalidCapAddr)
		return
	}
	id, ok := s.capIndex[key]
	if !ok {
		s.replyErr(m, halerr.ErrUnknownCap)
		return
	}
	ent := s.devices[id]
	if ent == nil || ent.adaptor == nil {
		s.replyErr(m, halerr.ErrNoAdaptor)
		return
	}

	res, err := ent.adaptor.Control(key.kind, verb, m.Payload)
	if err != nil {
		logx.V(1).Infof("hal: %s %s/%s: %v", verb, key.kind, key.name, err)
		s.replyErr(m, err)
		return
	}
	if st, ok := res.(types.SerialStatus); ok {
		res = s.withEventDrops(id, st)
	}
	s.reply(m, res)

	if verb != consts.CtrlWrite {
		return
	}
	ack, _ := res.(types.SerialWriteAck)
	if ack.Truncated {
		s.warn(id, ent, "tx queue full, write truncated after %d bytes", ack.N)
	}
	if ent.echo && ack.N > 0 {
		if data := writePayload(m.Payload); len(data) >= ack.N {
			s.reader.EmitTX(id, data[:ack.N])
		}
	}
}

// writePayload recovers the bytes of a write control.
func writePayload(p any) []byte {
	switch v := p.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	w, err := util.As[types.SerialWrite](p)
	if err != nil {
		return nil
	}
	return w.Data
}

// ---- events & status ----

func (s *Service) handleEvent(ev uartio.Event) {
	ent, ok := s.devices[ev.DevID]
	if !ok {
		return
	}
	if ev.Overflow {
		s.warn(ev.DevID, ent, "rx queue overflowed, bytes dropped")
	}
	logx.V(2).Infof("hal: %s %s %q", ev.DevID, ev.Dir, ev.Data)
	payload := types.SerialEvent{Dir: ev.Dir, Data: ev.Data, Overflow: ev.Overflow, TS: ev.TS.UnixMilli()}
	for _, ci := range ent.caps {
		if ci.Kind != consts.KindSerial {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capEventTagged(ci.Domain, ci.Kind, ci.Name, ev.Dir), payload, false))
	}
}

func (s *Service) publishAllStatus() {
	for id, ent := range s.devices {
		src, ok := ent.adaptor.(statusSource)
		if !ok {
			continue
		}
		st := s.withEventDrops(id, src.Status())
		if st.Overflowed && !ent.overflowed {
			s.warn(id, ent, "rx overflow flag set")
		}
		if st.TxLatched && !ent.latched {
			s.warn(id, ent, "tx latched after truncation")
		}
		if n := st.EventsDropped - ent.last.EventsDropped; n > 0 {
			s.warn(id, ent, "%d events dropped, consumer too slow", n)
		}
		if n := st.Dropped - ent.last.Dropped; n > 0 {
			s.warn(id, ent, "%d bytes dropped by the host device pumps", n)
		}
		if n := st.BusErrors - ent.last.BusErrors; n > 0 {
			s.warn(id, ent, "%d bus errors, last: %s", n, st.LastError)
		}
		ent.overflowed, ent.latched = st.Overflowed, st.TxLatched
		ent.last = st
		for _, ci := range ent.caps {
			s.conn.Publish(s.conn.NewMessage(capValue(ci.Domain, ci.Kind, ci.Name), st, false))
		}
	}
	if lc, ok := s.ic.(lossCounter); ok {
		if n := lc.Lost(); n != s.lostIRQ {
			logx.Warningf("hal: %d interrupts raised with no handler installed", n-s.lostIRQ)
			s.lostIRQ = n
		}
	}
	logx.V(1).Infof("hal: status published for %d devices at tic %d", len(s.devices), s.tics.Now())
}

// lossCounter is implemented by interrupt controllers that count raises
// nobody handled.
type lossCounter interface{ Lost() uint32 }

func (s *Service) withEventDrops(id string, st types.SerialStatus) types.SerialStatus {
	st.EventsDropped = s.reader.Dropped(id)
	return st
}

func (s *Service) warn(id string, ent *devEntry, format string, args ...any) {
	now := time.Now()
	if now.Sub(ent.lastWarn) < warnEvery {
		return
	}
	ent.lastWarn = now
	logx.Warningf("hal: %s: "+format, append([]any{id}, args...)...)
}

// ---- bus helpers ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		pl.Error = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(topicHALState(), pl, true))
}

func (s *Service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}
