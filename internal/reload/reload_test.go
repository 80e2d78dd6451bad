package reload

import (
	"context"
	"testing"
)

func TestExecTriggerSuccess(t *testing.T) {
	trig := &ExecTrigger{Argv: []string{"true"}}
	if err := trig.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestExecTriggerFailure(t *testing.T) {
	trig := &ExecTrigger{Argv: []string{"false"}}
	if err := trig.Reload(context.Background()); err == nil {
		t.Fatalf("expected failure from exiting command")
	}
}

func TestExecTriggerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trig := &ExecTrigger{Argv: []string{"sleep", "10"}}
	if err := trig.Reload(ctx); err == nil {
		t.Fatalf("expected error after cancellation")
	}
}

func TestCoreDNSTriggerArgv(t *testing.T) {
	trig := NewCoreDNSTrigger("coredns-server")
	if trig.Argv[0] != "docker" || trig.Argv[2] != "coredns-server" {
		t.Fatalf("unexpected argv: %v", trig.Argv)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Reload(context.Background()); err != nil {
		t.Fatalf("nop reload: %v", err)
	}
}
