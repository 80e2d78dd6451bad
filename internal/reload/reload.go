package reload

import (
	"context"
	"fmt"
	"os/exec"
)

// Trigger asks the serving process to pick up freshly published zone files.
// A failure is never fatal: CoreDNS also rescans its zone directory on its
// own, so the trigger only lowers propagation latency.
type Trigger interface {
	Reload(ctx context.Context) error
}

// ExecTrigger runs a fixed command line.
type ExecTrigger struct {
	Argv []string
}

// NewCoreDNSTrigger signals PID 1 of the named container, which CoreDNS
// treats as a reload request.
func NewCoreDNSTrigger(container string) *ExecTrigger {
	return &ExecTrigger{
		Argv: []string{"docker", "exec", container, "sh", "-c", "kill -USR1 1"},
	}
}

func (t *ExecTrigger) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.Argv[0], t.Argv[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("reload command failed: %w (output: %s)", err, output)
	}
	return nil
}

// Nop satisfies Trigger when no reload target is configured.
type Nop struct{}

func (Nop) Reload(context.Context) error { return nil }
