package sim

import "mcuhal-go/errcode"

func (b *Board) cyclesPerBit(baud uint32) (uint64, error) {
	if baud == 0 || baud > b.Clock.Hz() {
		return 0, &errcode.E{C: errcode.InvalidBaud, Op: "sim.Board"}
	}
	return uint64(b.Clock.Hz() / baud), nil
}

// InjectPin plays data into an input pin as 8N1 frames. Frames go out back
// to back and the receiving ISRs run as the start edges arrive.
func (b *Board) InjectPin(pin int, data []byte, baud uint32) error {
	p, ok := b.Pin(pin)
	if !ok {
		return &errcode.E{C: errcode.UnknownPin, Op: "sim.InjectPin"}
	}
	cpb, err := b.cyclesPerBit(baud)
	if err != nil {
		return err
	}
	p.SendFrames(data, cpb)
	return nil
}

// CapturePin decodes and forgets what was written to an output pin.
func (b *Board) CapturePin(pin int, baud uint32) ([]byte, error) {
	p, ok := b.Pin(pin)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "sim.CapturePin"}
	}
	cpb, err := b.cyclesPerBit(baud)
	if err != nil {
		return nil, err
	}
	out := DecodeFrames(p.trace, cpb)
	p.ResetTrace()
	return out, nil
}

// InjectUART delivers data to the on-chip USART receiver one frame time
// apart.
func (b *Board) InjectUART(id string, data []byte) error {
	if id != b.uart0.id {
		return &errcode.E{C: errcode.Unsupported, Op: "sim.InjectUART", Msg: id}
	}
	f := b.uart0.format
	if !b.uart0.configured || f.Baud == 0 {
		return &errcode.E{C: errcode.HALNotReady, Op: "sim.InjectUART"}
	}
	perByte := 10 * uint64(b.Clock.Hz()) / uint64(f.Baud)
	for _, c := range data {
		b.uart0.Receive(c)
		b.Clock.Advance(perByte)
	}
	return nil
}

// CaptureUART returns and clears the on-chip USART's wire log.
func (b *Board) CaptureUART(id string) ([]byte, error) {
	if id != b.uart0.id {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "sim.CaptureUART", Msg: id}
	}
	return b.uart0.TakeWire(), nil
}
