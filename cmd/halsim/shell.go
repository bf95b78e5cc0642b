package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/google/shlex"

	"mcuhal-go/bus"
	"mcuhal-go/services/hal"
	"mcuhal-go/types"
)

const shellKey = "$shell"

// Shell is the ishell front end over a hal.Client.
type Shell struct {
	Shell  *ishell.Shell
	conn   *bus.Connection
	client *hal.Client

	mu      sync.Mutex
	monitor *bus.Subscription
}

func NewShell(conn *bus.Connection) *Shell {
	s := &Shell{
		Shell:  ishell.New(),
		conn:   conn,
		client: hal.NewClient(conn),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("hal > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

func shellFrom(c *ishell.Context) *Shell { return c.Get(shellKey).(*Shell) }

// Close stops the monitor.
func (s *Shell) Close() { s.setMonitor(false, nil) }

// RunScript runs one shell command per line. Blank lines and lines
// starting with # are skipped.
func (s *Shell) RunScript(r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		args, err := scriptArgs(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(args) == 0 {
			continue
		}
		if err := s.Shell.Process(args...); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func scriptArgs(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	return shlex.Split(keepEscapes(line))
}

// keepEscapes doubles backslashes outside single quotes so shlex hands Go
// escapes like \r\n on to unescape instead of eating them. \" still
// escapes a quote.
func keepEscapes(line string) string {
	var b strings.Builder
	var inSingle, inDouble bool
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\\' && !inSingle:
			if i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
				if line[i+1] == '\\' {
					b.WriteString(`\\\\`)
				} else {
					b.WriteString(`\"`)
				}
				i++
				continue
			}
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unescape turns shell text into bytes, honouring Go escapes like \r\n
// and \x00.
func unescape(args []string) ([]byte, error) {
	s := strings.Join(args, " ")
	u, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("bad escape in %q", s)
	}
	return []byte(u), nil
}

func (s *Shell) devices() []types.SerialInfo {
	sub := s.conn.Subscribe(hal.SerialTopic("+", "info"))
	defer s.conn.Unsubscribe(sub)
	var out []types.SerialInfo
	for {
		select {
		case m := <-sub.Channel():
			if inf, ok := m.Payload.(types.Info); ok {
				if d, ok := inf.Detail.(types.SerialInfo); ok {
					out = append(out, d)
				}
			}
		default:
			sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
			return out
		}
	}
}

func (s *Shell) setMonitor(on bool, w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor != nil {
		s.conn.Unsubscribe(s.monitor)
		s.monitor = nil
	}
	if !on {
		return
	}
	sub := s.conn.Subscribe(hal.SerialTopic("+", "event", "+"))
	s.monitor = sub
	go func() {
		for m := range sub.Channel() {
			if ev, ok := m.Payload.(types.SerialEvent); ok {
				fmt.Fprintf(w, "[%v %s] %q\n", m.Topic[4], ev.Dir, ev.Data)
			}
		}
	}()
}

func printJSON(c *ishell.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(b))
}

// withDevice wraps commands taking NAME as their first argument.
func withDevice(min int, fn func(c *ishell.Context, s *Shell, ctx context.Context, name string)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < min {
			c.Err(fmt.Errorf("usage: %s %s", c.Cmd.Name, c.Cmd.Help))
			return
		}
		fn(c, shellFrom(c), context.Background(), c.Args[0])
	}
}

var commands = []*ishell.Cmd{
	{
		Name:    "devices",
		Aliases: []string{"ls"},
		Help:    "list configured serial devices",
		Func: func(c *ishell.Context) {
			for _, d := range shellFrom(c).devices() {
				c.Printf("%-10s %-12s %-16s %d/%s %v\n", d.ID, d.Kind, d.Backend, d.Baud, d.Parity, d.Pins)
			}
		},
	},
	{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "NAME TEXT…",
		Func: withDevice(2, func(c *ishell.Context, s *Shell, ctx context.Context, name string) {
			data, err := unescape(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			ack, err := s.client.Write(ctx, name, data)
			if err != nil && ack.N == 0 {
				c.Err(err)
				return
			}
			printJSON(c, ack)
		}),
	},
	{
		Name: "inject",
		Help: "NAME TEXT…",
		Func: withDevice(2, func(c *ishell.Context, s *Shell, ctx context.Context, name string) {
			data, err := unescape(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.client.Inject(ctx, name, data); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	},
	{
		Name:    "capture",
		Aliases: []string{"cap"},
		Help:    "NAME",
		Func: withDevice(1, func(c *ishell.Context, s *Shell, ctx context.Context, name string) {
			b, err := s.client.Capture(ctx, name)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%q\n", b)
		}),
	},
	{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "NAME",
		Func: withDevice(1, func(c *ishell.Context, s *Shell, ctx context.Context, name string) {
			st, err := s.client.Status(ctx, name)
			if err != nil {
				c.Err(err)
				return
			}
			printJSON(c, st)
		}),
	},
	{
		Name: "flush",
		Help: "NAME",
		Func: withDevice(1, func(c *ishell.Context, s *Shell, ctx context.Context, name string) {
			if err := s.client.Flush(ctx, name); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	},
	{
		Name: "monitor",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			on := len(c.Args) == 0 || c.Args[0] != "off"
			shellFrom(c).setMonitor(on, shellOut{c})
		},
	},
	{
		Name: "state",
		Help: "show hal/state",
		Func: func(c *ishell.Context) {
			s := shellFrom(c)
			sub := s.conn.Subscribe(hal.StateTopic())
			defer s.conn.Unsubscribe(sub)
			select {
			case m := <-sub.Channel():
				printJSON(c, m.Payload)
			default:
				c.Println("no state published")
			}
		},
	},
}

// shellOut lets background output go through ishell's printer.
type shellOut struct{ c *ishell.Context }

func (o shellOut) Write(p []byte) (int, error) {
	o.c.Print(string(p))
	return len(p), nil
}
