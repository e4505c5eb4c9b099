package repokit

import (
	"context"
	"errors"
	"testing"

	"constkit/internal/platform/testkit"
)

type fakeQ struct{ Queryer }

type fakeGuard struct{ err error }

func (f fakeGuard) Guard(context.Context) error { return f.err }

func TestMustBind(t *testing.T) {
	b := BindFunc[string](func(q Queryer) string {
		if q == nil {
			return "nil"
		}
		return "bound"
	})
	if got := MustBind[string](b, fakeQ{}); got != "bound" {
		t.Fatalf("got %q", got)
	}
	testkit.MustPanic(t, func() { MustBind[string](b, nil) })
}

func TestGuard(t *testing.T) {
	if err := Guard(context.Background(), "ledger", fakeGuard{}); err != nil {
		t.Fatalf("guard: %v", err)
	}
	err := Guard(context.Background(), "ledger", fakeGuard{err: errors.New("down")})
	if err == nil {
		t.Fatalf("expected error")
	}
	testkit.MustContain(t, err.Error(), "ledger guard failed: down")
	if err := Guard(context.Background(), "ledger", nil); err == nil {
		t.Fatalf("nil dependency should fail")
	}
}
