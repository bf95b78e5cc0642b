package registry

import (
	"errors"
	"testing"

	"mcuhal-go/errcode"
)

type dummyBuilder struct{}

func (dummyBuilder) Build(in BuildInput) (BuildOutput, error) { return BuildOutput{}, nil }

func TestRegisterAndLookup(t *testing.T) {
	const typ = "test_dummy_builder"
	if _, ok := Lookup(typ); ok {
		t.Skip("builder already registered by earlier test run")
	}
	RegisterBuilder(typ, dummyBuilder{})
	if _, ok := Lookup(typ); !ok {
		t.Fatalf("lookup failed for %q", typ)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	const typ = "test_duplicate_builder"
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, dummyBuilder{})
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterBuilder(typ, dummyBuilder{})
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	if err := c.ClaimPin("a", 2); err != nil {
		t.Fatalf("ClaimPin: %v", err)
	}
	if err := c.ClaimPin("a", 2); err != nil {
		t.Fatalf("re-claim by owner: %v", err)
	}
	if err := c.ClaimPin("b", 2); !errors.Is(err, errcode.PinInUse) {
		t.Fatalf("conflict: %v", err)
	}
	if err := c.ClaimUART("b", "uart0"); err != nil {
		t.Fatalf("ClaimUART: %v", err)
	}
	if err := c.ClaimUART("a", "uart0"); !errors.Is(err, errcode.BusInUse) {
		t.Fatalf("uart conflict: %v", err)
	}
	if d, ok := c.UARTOwner("uart0"); !ok || d != "b" {
		t.Fatalf("UARTOwner = %q %v", d, ok)
	}

	c.ReleaseAll("a")
	if _, ok := c.PinOwner(2); ok {
		t.Fatal("pin still claimed after release")
	}
	if err := c.ClaimPin("b", 2); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestTypesListsRegistered(t *testing.T) {
	const typ = "test_listed_builder"
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, dummyBuilder{})
	}
	for _, ty := range Types() {
		if ty == typ {
			return
		}
	}
	t.Fatalf("%q missing from Types()", typ)
}
