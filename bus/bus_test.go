// bus/bus_test.go
package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("hal", "cap", "serial", "gps", "event", "rx"))
	conn.Publish(conn.NewMessage(T("hal", "cap", "serial", "gps", "event", "rx"), "$GPGGA", false))

	expectOneOf(t, sub, "$GPGGA")
}

func TestRetainedState(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("hal", "state"), "ready", true))
	sub := conn.Subscribe(T("hal", "state"))
	expectOneOf(t, sub, "ready")

	// A newer retained message replaces the stored one.
	conn.Publish(conn.NewMessage(T("hal", "state"), "stopped", true))
	expectOneOf(t, sub, "stopped")
	late := conn.Subscribe(T("hal", "state"))
	expectOneOf(t, late, "stopped")
	expectNoMessage(t, late)
}

func TestSlowSubscriberLosesOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("x"))

	for _, p := range []string{"1", "2", "3"} {
		c.Publish(b.NewMessage(T("x"), p, false))
	}
	got := drainPayloads(t, s, 2)
	if got[0] != "2" || got[1] != "3" {
		t.Fatalf("expected newest two, got %v", got)
	}
}

// -----------------------------------------------------------------------------
// Wildcards
// -----------------------------------------------------------------------------

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAnyWrite := c.Subscribe(T("hal", "cap", "serial", "+", "control", "write"))
	sAnyVerb := c.Subscribe(T("hal", "cap", "serial", "+", "control", "+"))
	sConsole := c.Subscribe(T("hal", "cap", "serial", "console", "control", "+"))
	sNo := c.Subscribe(T("hal", "cap", "serial", "+", "control", "flush"))

	c.Publish(b.NewMessage(T("hal", "cap", "serial", "console", "control", "write"), "m1", false))
	expectOneOf(t, sAnyWrite, "m1")
	expectOneOf(t, sAnyVerb, "m1")
	expectOneOf(t, sConsole, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("hal", "cap", "serial", "gps", "control", "status"), "m2", false))
	expectOneOf(t, sAnyVerb, "m2")
	expectNoMessage(t, sAnyWrite)
	expectNoMessage(t, sConsole)

	// Wrong depth never matches "+".
	c.Publish(b.NewMessage(T("hal", "cap", "serial", "control", "write"), "m3", false))
	expectNoMessage(t, sAnyWrite)
	expectNoMessage(t, sAnyVerb)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sHAL := c.Subscribe(T("hal", "#"))
	sAll := c.Subscribe(T("#"))
	sCap := c.Subscribe(T("hal", "cap", "#"))
	sExact := c.Subscribe(T("hal"))

	c.Publish(b.NewMessage(T("hal"), "p1", false))
	expectOneOf(t, sHAL, "p1")
	expectOneOf(t, sAll, "p1")
	expectOneOf(t, sExact, "p1")
	expectNoMessage(t, sCap)

	c.Publish(b.NewMessage(T("hal", "cap", "serial", "gps", "status"), "p2", false))
	expectOneOf(t, sHAL, "p2")
	expectOneOf(t, sAll, "p2")
	expectOneOf(t, sCap, "p2")
	expectNoMessage(t, sExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("hal", "state"), "r0", true))
	c.Publish(b.NewMessage(T("hal", "console", "info"), "r1", true))
	c.Publish(b.NewMessage(T("hal", "console", "info", "detail"), "r2", true))
	c.Publish(b.NewMessage(T("hal", "gps", "info"), "r3", true))

	all := drainPayloads(t, c.Subscribe(T("hal", "#")), 4)
	assertUnorderedEqual(t, all, []string{"r0", "r1", "r2", "r3"})

	ph := drainPayloads(t, c.Subscribe(T("hal", "+", "#")), 3)
	assertUnorderedEqual(t, ph, []string{"r1", "r2", "r3"})

	p := drainPayloads(t, c.Subscribe(T("hal", "+", "info")), 2)
	assertUnorderedEqual(t, p, []string{"r1", "r3"})
}

func TestWildcard_RetainedClear(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("hal", "console", "info"), "gone", true))
	c.Publish(b.NewMessage(T("hal", "gps", "info"), "kept", true))
	c.Publish(b.NewMessage(T("hal", "console", "info"), nil, true))

	got := drainPayloads(t, c.Subscribe(T("hal", "#")), 1)
	if got[0] != "kept" {
		t.Fatalf("expected only 'kept' after clear, got %v", got)
	}
}

func TestIntTokens(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("pcint", "+"))
	c.Publish(b.NewMessage(T("pcint", 2), "port2", false))
	expectOneOf(t, s, "port2")
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

func TestRequestReply_RequestWait(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")
	respConn := b.NewConnection("responder")

	reqTopic := T("hal", "cap", "serial", "console", "control", "status")
	respSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(respSub)

	go func() {
		if msg, ok := <-respSub.Channel(); ok {
			respConn.Reply(msg, "OK", false)
		}
	}()

	req := b.NewMessage(reqTopic, nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := reqConn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error waiting for reply: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		t.Fatalf("unexpected reply payload: %#v", reply.Payload)
	}
	if !req.CanReply() {
		t.Fatal("request lacks ReplyTo after RequestWait")
	}
	if !topicsEqual(reply.Topic, req.ReplyTo) {
		t.Fatalf("reply topic %v != request ReplyTo %v", reply.Topic, req.ReplyTo)
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := reqConn.RequestWait(ctx, b.NewMessage(T("hal", "noop"), nil, false)); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestReply_WithoutReplyTo(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("c")
	if err := c.Reply(b.NewMessage(T("x"), nil, false), "x", false); err != ErrNoReplyTo {
		t.Fatalf("expected ErrNoReplyTo, got %v", err)
	}
}

func TestDisconnectClosesChannels(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("c")
	s := c.Subscribe(T("a"))
	c.Disconnect()
	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel should be closed")
	}
	// Publishing after disconnect must not reach the closed channel.
	c.Publish(b.NewMessage(T("a"), "x", false))
}

func TestTopic_AppendDoesNotAlias(t *testing.T) {
	base := T("hal", "cap")
	a := base.Append("serial")
	bb := base.Append("gpio")
	if a.At(2) != "serial" || bb.At(2) != "gpio" || base.Len() != 2 {
		t.Fatalf("append aliasing: %v %v %v", base, a, bb)
	}
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-comparable token, got none")
		}
	}()
	_ = T([]byte{1, 2, 3})
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			s, ok := m.Payload.(string)
			if !ok {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
			out = append(out, s)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch: got %v, want %v", got, want)
		}
	}
}
