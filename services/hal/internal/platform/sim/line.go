package sim

import "mcuhal-go/services/hal/internal/halcore"

// SendFrame plays one 8N1 frame of b into the input pin, starting at the
// current cycle with bits cyclesPerBit long. The start edge raises the
// pin's change interrupt (delivered now, or later if masked). On return the
// clock is at the end of the stop bit or later.
func (p *Pin) SendFrame(b byte, cyclesPerBit uint64) {
	start := p.clock.Now()
	p.Schedule(start, halcore.Low)
	for i := 0; i < 8; i++ {
		p.Schedule(start+uint64(i+1)*cyclesPerBit, halcore.LevelOf(b>>i&1 == 1))
	}
	p.Schedule(start+9*cyclesPerBit, halcore.High)
	p.port.pinChanged(p)
	p.clock.AdvanceTo(start + 10*cyclesPerBit)
}

// SendFrames plays bs back to back.
func (p *Pin) SendFrames(bs []byte, cyclesPerBit uint64) {
	for _, b := range bs {
		p.SendFrame(b, cyclesPerBit)
	}
}

// DecodeFrames recovers 8N1 bytes from an output trace by sampling the
// middle of each bit cell. Idle is high; a frame starts at a falling edge.
func DecodeFrames(trace []Transition, cyclesPerBit uint64) []byte {
	if len(trace) == 0 {
		return nil
	}
	levelAt := func(t uint64) halcore.Level {
		l := halcore.High
		for _, tr := range trace {
			if tr.At > t {
				break
			}
			l = tr.Level
		}
		return l
	}
	var out []byte
	end := trace[len(trace)-1].At
	for i := 0; i < len(trace); i++ {
		tr := trace[i]
		if tr.Level != halcore.Low || (i > 0 && trace[i-1].Level == halcore.Low) {
			continue
		}
		start := tr.At
		if levelAt(start+cyclesPerBit/2) != halcore.Low {
			continue
		}
		var b byte
		for bit := 0; bit < 8; bit++ {
			mid := start + uint64(bit+1)*cyclesPerBit + cyclesPerBit/2
			if levelAt(mid) == halcore.High {
				b |= 1 << bit
			}
		}
		out = append(out, b)
		// Skip transitions inside this frame.
		stop := start + 9*cyclesPerBit
		for i+1 < len(trace) && trace[i+1].At < stop {
			i++
		}
		if stop > end {
			break
		}
	}
	return out
}
