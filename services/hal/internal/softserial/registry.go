package softserial

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
)

// MaxPerPort bounds how many software serial lines share one pin-change
// vector. Each dispatch scans them linearly.
const MaxPerPort = 4

// Listener is notified when its port's pin-change vector fires. It reports
// whether it took the event (saw its start bit and received a byte).
type Listener interface {
	OnPinChange() bool
}

type portTable struct {
	n         int
	l         [MaxPerPort]Listener
	installed bool
	spurious  uint32
}

// Registry maps pin-change ports to the software serial lines on them. The
// HAL service owns one and hands it to every line and to the vector table.
//
// While one line samples a byte interrupts are masked, so a start bit on
// another line of the same port during that time is lost. Nothing records
// the loss.
type Registry struct {
	ports map[int]*portTable
}

func NewRegistry() *Registry {
	return &Registry{ports: map[int]*portTable{}}
}

// Add appends l to port's table.
func (r *Registry) Add(port int, l Listener) error {
	t := r.ports[port]
	if t == nil {
		t = &portTable{}
		r.ports[port] = t
	}
	for i := 0; i < t.n; i++ {
		if t.l[i] == l {
			return &errcode.E{C: errcode.Busy, Op: "softserial.Registry.Add", Msg: "listener already registered"}
		}
	}
	if t.n == MaxPerPort {
		return &errcode.E{C: errcode.RegistryFull, Op: "softserial.Registry.Add"}
	}
	t.l[t.n] = l
	t.n++
	return nil
}

// Remove drops l from port's table, keeping scan order for the rest.
func (r *Registry) Remove(port int, l Listener) {
	t := r.ports[port]
	if t == nil {
		return
	}
	for i := 0; i < t.n; i++ {
		if t.l[i] != l {
			continue
		}
		copy(t.l[i:t.n], t.l[i+1:t.n])
		t.n--
		t.l[t.n] = nil
		return
	}
}

// Len returns how many listeners share port.
func (r *Registry) Len(port int) int {
	if t := r.ports[port]; t != nil {
		return t.n
	}
	return 0
}

// Dispatch is the body of a port's pin-change ISR: the first listener that
// takes the event ends the scan.
func (r *Registry) Dispatch(port int) bool {
	t := r.ports[port]
	if t == nil {
		return false
	}
	for i := 0; i < t.n; i++ {
		if t.l[i].OnPinChange() {
			return true
		}
	}
	t.spurious++
	return false
}

// Spurious counts dispatches no listener took (release edges, noise).
func (r *Registry) Spurious(port int) uint32 {
	if t := r.ports[port]; t != nil {
		return t.spurious
	}
	return 0
}

// Install hooks port's dispatcher to vector v. Installing a port twice is a
// no-op so every line on it may call Install.
func (r *Registry) Install(vt halcore.VectorTable, port int, v halcore.Vector) error {
	t := r.ports[port]
	if t == nil {
		t = &portTable{}
		r.ports[port] = t
	}
	if t.installed {
		return nil
	}
	if err := vt.Install(v, func() { r.Dispatch(port) }); err != nil {
		return err
	}
	t.installed = true
	return nil
}
