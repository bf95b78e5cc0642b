// services/hal/internal/uartio/uart_worker.go
package uartio

import (
	"time"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/x/mathx"
)

type Event struct {
	DevID    string
	Dir      string // "rx" | "tx"
	Data     []byte
	Overflow bool // bytes were lost before this frame
	TS       time.Time
}

type ReaderCfg struct {
	DevID     string
	Port      halcore.SerialPort
	Mode      string        // "bytes" | "lines"
	MaxFrame  int           // clamp 16..256
	IdleFlush time.Duration // clamp 0..2s (lines mode)
}

type reader struct {
	cfg      ReaderCfg
	buf      []byte
	line     []byte
	lastRx   time.Time
	overflow bool
	dropped  uint32
}

// Worker frames bytes from registered ports into events. It has no
// goroutine of its own: Poll is called from the core loop, so port reads
// never race the ISRs that fill them.
type Worker struct {
	outQ    chan Event
	readers map[string]*reader
	order   []*reader
	drops   int
}

func New(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Worker{outQ: make(chan Event, outBuf), readers: map[string]*reader{}}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

// Drops counts events lost to a slow consumer.
func (w *Worker) Drops() int { return w.drops }

// Dropped counts devID's events lost to a slow consumer.
func (w *Worker) Dropped(devID string) uint32 {
	if r := w.readers[devID]; r != nil {
		return r.dropped
	}
	return 0
}

// Register adds a reader for a port. Returns cancel.
func (w *Worker) Register(cfg ReaderCfg) (func(), error) {
	if cfg.Port == nil || cfg.DevID == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "uartio.Register"}
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = "bytes"
	case "bytes", "lines":
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "uartio.Register", Msg: "mode"}
	}
	if _, dup := w.readers[cfg.DevID]; dup {
		return nil, &errcode.E{C: errcode.Busy, Op: "uartio.Register", Msg: cfg.DevID}
	}
	cfg.MaxFrame = mathx.Clamp(cfg.MaxFrame, 16, 256)
	cfg.IdleFlush = mathx.Clamp(cfg.IdleFlush, 0, 2*time.Second)

	r := &reader{cfg: cfg, buf: make([]byte, cfg.MaxFrame)}
	w.readers[cfg.DevID] = r
	w.order = append(w.order, r)

	return func() { w.remove(r) }, nil
}

func (w *Worker) remove(r *reader) {
	if w.readers[r.cfg.DevID] != r {
		return
	}
	delete(w.readers, r.cfg.DevID)
	for i, x := range w.order {
		if x == r {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Poll drains every registered port once.
func (w *Worker) Poll(now time.Time) {
	for _, r := range w.order {
		w.pollOne(r, now)
	}
}

func (w *Worker) pollOne(r *reader, now time.Time) {
	got := false
	for {
		// Sample the flag first: Read clears it.
		if r.cfg.Port.Overflowed() {
			r.overflow = true
		}
		n, err := r.cfg.Port.Read(r.buf)
		if err != nil || n == 0 {
			break
		}
		got = true
		r.lastRx = now
		if r.cfg.Mode == "lines" {
			w.accumulate(r, r.buf[:n], now)
		} else {
			w.emit(r, append([]byte(nil), r.buf[:n]...), now)
		}
		if n < len(r.buf) {
			break
		}
	}
	if !got && r.cfg.Mode == "lines" && len(r.line) > 0 && r.cfg.IdleFlush > 0 &&
		now.Sub(r.lastRx) >= r.cfg.IdleFlush {
		w.flush(r, now)
	}
}

// accumulate splits on LF, ignores CR and flushes a full line early.
func (w *Worker) accumulate(r *reader, p []byte, now time.Time) {
	for _, b := range p {
		switch b {
		case '\n':
			w.flush(r, now)
		case '\r':
		default:
			r.line = append(r.line, b)
			if len(r.line) >= r.cfg.MaxFrame {
				w.flush(r, now)
			}
		}
	}
}

func (w *Worker) flush(r *reader, now time.Time) {
	if len(r.line) == 0 {
		return
	}
	payload := append([]byte(nil), r.line...)
	r.line = r.line[:0]
	w.emit(r, payload, now)
}

func (w *Worker) emit(r *reader, data []byte, now time.Time) {
	ev := Event{DevID: r.cfg.DevID, Dir: "rx", Data: data, Overflow: r.overflow, TS: now}
	if w.push(r, ev) {
		r.overflow = false
	}
}

// push queues ev without blocking. A dropped rx frame marks the reader so
// the next frame that does get through carries Overflow.
func (w *Worker) push(r *reader, ev Event) bool {
	select {
	case w.outQ <- ev:
		return true
	default:
	}
	w.drops++
	if r != nil {
		r.dropped++
		if ev.Dir == "rx" {
			r.overflow = true
		}
	}
	return false
}

// EmitTX publishes a TX echo event.
func (w *Worker) EmitTX(devID string, data []byte) {
	w.push(w.readers[devID], Event{DevID: devID, Dir: "tx", Data: append([]byte(nil), data...), TS: time.Now()})
}
