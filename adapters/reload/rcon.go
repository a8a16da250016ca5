// Package reload tells the game server to re-read its whitelist.
package reload

import (
	"context"
	"fmt"
	"time"

	"github.com/gorcon/rcon"

	"github.com/clawcraft/gatekeeper/ports"
)

// Command is the server console command issued after a whitelist change
const Command = "whitelist reload"

// RCON reloads the whitelist over the server's remote console
type RCON struct {
	addr     string
	password string
	timeout  time.Duration
}

// NewRCON creates an RCON reloader for addr (host:port)
func NewRCON(addr, password string, timeout time.Duration) *RCON {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RCON{addr: addr, password: password, timeout: timeout}
}

// Reload opens a connection, runs the reload command and closes it
func (r *RCON) Reload(ctx context.Context) error {
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	conn, err := rcon.Dial(r.addr, r.password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to rcon %s: %w", r.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Execute(Command); err != nil {
		return fmt.Errorf("failed to run %q: %w", Command, err)
	}
	return nil
}

var _ ports.Reloader = (*RCON)(nil)
