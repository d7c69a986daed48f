package realtime

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"trivia-session-service/internal/domain"
)

func TestBroadcastReachesOnlyBoundGame(t *testing.T) {
	reg := NewRegistry(4, nil)
	c1, c2, c3, c4 := reg.Register(), reg.Register(), reg.Register(), reg.Register()
	for _, c := range []*Conn{c1, c2, c3} {
		if err := reg.Bind(c.ID(), "u-"+c.ID(), "G"); err != nil {
			t.Fatalf("bind: %v", err)
		}
	}
	if err := reg.Bind(c4.ID(), "u4", "H"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if n := reg.Broadcast("G", map[string]string{"type": "ping"}, ""); n != 3 {
		t.Fatalf("expected 3 deliveries, got %d", n)
	}
	for _, c := range []*Conn{c1, c2, c3} {
		if len(c.Outbound()) != 1 {
			t.Fatalf("expected message on %s", c.ID())
		}
	}
	if len(c4.Outbound()) != 0 {
		t.Fatalf("connection bound to H must not receive G traffic")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	reg := NewRegistry(4, nil)
	a, b := reg.Register(), reg.Register()
	_ = reg.Bind(a.ID(), "ua", "G")
	_ = reg.Bind(b.ID(), "ub", "G")

	if n := reg.Broadcast("G", json.RawMessage(`{"x":1}`), a.ID()); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if len(a.Outbound()) != 0 {
		t.Fatalf("sender should be excluded")
	}
	if got := string(<-b.Outbound()); got != `{"x":1}` {
		t.Fatalf("payload not passed verbatim: %s", got)
	}
}

func TestRebindMovesConnection(t *testing.T) {
	reg := NewRegistry(4, nil)
	c := reg.Register()
	_ = reg.Bind(c.ID(), "u1", "G")
	_ = reg.Bind(c.ID(), "u1", "H")

	if n := reg.Broadcast("G", "x", ""); n != 0 {
		t.Fatalf("expected no G deliveries after rebind, got %d", n)
	}
	if n := reg.Broadcast("H", "x", ""); n != 1 {
		t.Fatalf("expected H delivery, got %d", n)
	}
	if _, gameID, ok := reg.Binding(c.ID()); !ok || gameID != "H" {
		t.Fatalf("expected binding to H, got %q", gameID)
	}
}

func TestClosedAndSaturatedConnectionsAreSkipped(t *testing.T) {
	reg := NewRegistry(1, nil)
	closed, full, ok := reg.Register(), reg.Register(), reg.Register()
	for _, c := range []*Conn{closed, full, ok} {
		_ = reg.Bind(c.ID(), "u", "G")
	}
	closed.MarkClosed()
	if err := reg.Send(full.ID(), "fill"); err != nil {
		t.Fatalf("fill: %v", err)
	}

	if n := reg.Broadcast("G", "msg", ""); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
	if err := reg.Send(full.ID(), "again"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestUnregisterClosesQueue(t *testing.T) {
	reg := NewRegistry(2, nil)
	c := reg.Register()
	_ = reg.Bind(c.ID(), "u", "G")
	reg.Unregister(c.ID())
	reg.Unregister(c.ID())

	if _, open := <-c.Outbound(); open {
		t.Fatalf("expected outbound closed")
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty registry")
	}
	if err := reg.Bind(c.ID(), "u", "G"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := reg.Broadcast("G", "x", ""); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
}

func TestBoundAndClose(t *testing.T) {
	reg := NewRegistry(2, nil)
	a, b := reg.Register(), reg.Register()
	_ = reg.Bind(a.ID(), "ua", "G")
	_ = reg.Bind(b.ID(), "ub", "G")

	ids := reg.Bound("G")
	sort.Strings(ids)
	want := []string{a.ID(), b.ID()}
	sort.Strings(want)
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("unexpected bound set %v", ids)
	}

	reg.Close()
	if reg.Count() != 0 {
		t.Fatalf("expected registry emptied on close")
	}
	late := reg.Register()
	if _, open := <-late.Outbound(); open {
		t.Fatalf("registration after close should be born closed")
	}
}
