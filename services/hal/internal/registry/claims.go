package registry

import (
	"strconv"

	"mcuhal-go/errcode"
)

// Claims records which device owns each pin and UART channel. It is used
// from the core goroutine only.
type Claims struct {
	owner map[string]string // resource -> devID
}

func NewClaims() *Claims { return &Claims{owner: map[string]string{}} }

func pinKey(n int) string      { return "pin:" + strconv.Itoa(n) }
func uartKey(id string) string { return "uart:" + id }

func (c *Claims) claim(devID, res string, code errcode.Code) error {
	if cur, ok := c.owner[res]; ok && cur != devID {
		return &errcode.E{C: code, Op: "claim", Msg: res + " owned by " + cur}
	}
	c.owner[res] = devID
	return nil
}

// ClaimPin reserves a GPIO for devID. Claiming twice for the same device is
// allowed.
func (c *Claims) ClaimPin(devID string, pin int) error {
	return c.claim(devID, pinKey(pin), errcode.PinInUse)
}

// ClaimUART reserves a UART channel (on-chip, bridge or tty) for devID.
func (c *Claims) ClaimUART(devID, id string) error {
	return c.claim(devID, uartKey(id), errcode.BusInUse)
}

func (c *Claims) PinOwner(pin int) (string, bool) {
	d, ok := c.owner[pinKey(pin)]
	return d, ok
}

func (c *Claims) UARTOwner(id string) (string, bool) {
	d, ok := c.owner[uartKey(id)]
	return d, ok
}

// ReleaseAll drops every claim held by devID.
func (c *Claims) ReleaseAll(devID string) {
	for res, d := range c.owner {
		if d == devID {
			delete(c.owner, res)
		}
	}
}
