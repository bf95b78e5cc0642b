// Package hal runs the serial HAL on the board selected at build time and
// offers a small client for its bus surface.
//
// Devices are configured on config/hal. Each one appears at
// hal/cap/io/serial/<name>/… with retained info and status, periodic value
// snapshots, rx/tx events and control verbs (write, flush, status, and on
// simulated boards inject and capture).
package hal

import (
	"context"
	"time"

	"mcuhal-go/bus"
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/platform"
	"mcuhal-go/services/hal/internal/service"
	"mcuhal-go/services/hal/internal/util"
	"mcuhal-go/types"

	_ "mcuhal-go/services/hal/devices/serial"
)

type Option = service.Option

// WithPollPeriod sets how often the hardware is serviced.
func WithPollPeriod(d time.Duration) Option { return service.WithPollPeriod(d) }

// Run owns the board until ctx is done.
func Run(ctx context.Context, conn *bus.Connection, opts ...Option) {
	service.New(conn, platform.New(), opts...).Run(ctx)
}

// InitialConfig is the boot configuration of the selected board.
func InitialConfig() types.HALConfig { return platform.GetInitialConfig() }

// Board names the selected board ("sim" on a host build).
func Board() string { return platform.BoardName() }

// ConfigTopic is where HALConfig is published.
func ConfigTopic() bus.Topic { return bus.T(consts.TokConfig, consts.TokHAL) }

// StateTopic carries the retained HALState.
func StateTopic() bus.Topic { return bus.T(consts.TokHAL, consts.TokState) }

// SerialTopic addresses hal/cap/io/serial/<name>/<rest…>.
func SerialTopic(name string, rest ...bus.Token) bus.Topic {
	return bus.T(consts.TokHAL, consts.TokCap, consts.DomainIO, consts.KindSerial, name).Append(rest...)
}

// Client issues control requests to named serial capabilities.
type Client struct {
	conn    *bus.Connection
	timeout time.Duration
}

const DefaultTimeout = time.Second

func NewClient(conn *bus.Connection) *Client {
	return &Client{conn: conn, timeout: DefaultTimeout}
}

// WithTimeout returns a copy of c using d per request.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

// Write queues data for transmission. A truncated write returns the ack
// along with an error carrying errcode.TxFull.
func (c *Client) Write(ctx context.Context, name string, data []byte) (types.SerialWriteAck, error) {
	res, err := c.call(ctx, name, consts.CtrlWrite, types.SerialWrite{Data: data})
	if err != nil {
		return types.SerialWriteAck{}, err
	}
	ack, err := util.As[types.SerialWriteAck](res)
	if err != nil {
		return ack, err
	}
	if !ack.OK {
		return ack, &errcode.E{C: errcode.Code(ack.Error), Op: "hal.write", Msg: name}
	}
	return ack, nil
}

func (c *Client) Flush(ctx context.Context, name string) error {
	_, err := c.call(ctx, name, consts.CtrlFlush, nil)
	return err
}

func (c *Client) Status(ctx context.Context, name string) (types.SerialStatus, error) {
	res, err := c.call(ctx, name, consts.CtrlStatus, nil)
	if err != nil {
		return types.SerialStatus{}, err
	}
	return util.As[types.SerialStatus](res)
}

// Inject plays data into the device's receive line (simulated boards).
func (c *Client) Inject(ctx context.Context, name string, data []byte) error {
	_, err := c.call(ctx, name, consts.CtrlInject, types.SerialInject{Data: data})
	return err
}

// Capture drains what the device has put on its transmit line since the
// previous capture (simulated boards).
func (c *Client) Capture(ctx context.Context, name string) ([]byte, error) {
	res, err := c.call(ctx, name, consts.CtrlCapture, nil)
	if err != nil {
		return nil, err
	}
	cp, err := util.As[types.SerialCapture](res)
	return cp.Data, err
}

// Events subscribes to a device's rx or tx events (consts tag "rx"/"tx").
func (c *Client) Events(name, dir string) *bus.Subscription {
	return c.conn.Subscribe(SerialTopic(name, consts.TokEvent, dir))
}

func (c *Client) call(ctx context.Context, name, verb string, payload any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	msg := c.conn.NewMessage(SerialTopic(name, consts.TokControl, verb), payload, false)
	reply, err := c.conn.RequestWait(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &errcode.E{C: errcode.Timeout, Op: "hal." + verb, Msg: name, Err: err}
		}
		return nil, err
	}
	if er, ok := reply.Payload.(types.ErrorReply); ok && !er.OK {
		return nil, &errcode.E{C: errcode.Code(er.Error), Op: "hal." + verb, Msg: name}
	}
	return reply.Payload, nil
}
