package reload

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/clawcraft/gatekeeper/ports"
)

// Runner executes an external program
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Screen types the reload command into the console of a server running in a
// detached screen session
type Screen struct {
	session string
	run     Runner
}

// NewScreen creates a reloader for the named screen session
func NewScreen(session string) *Screen {
	return &Screen{session: session, run: execRunner}
}

// WithRunner replaces the process runner
func (s *Screen) WithRunner(run Runner) *Screen {
	s.run = run
	return s
}

// Reload stuffs the reload command into window 0 of the session
func (s *Screen) Reload(ctx context.Context) error {
	if err := s.run(ctx, "screen", "-S", s.session, "-p", "0", "-X", "stuff", Command+"\n"); err != nil {
		return fmt.Errorf("failed to reload via screen %s: %w", s.session, err)
	}
	return nil
}

// Nop is used when the server picks up whitelist changes on its own
type Nop struct{}

func (Nop) Reload(context.Context) error { return nil }

var (
	_ ports.Reloader = (*Screen)(nil)
	_ ports.Reloader = Nop{}
)
