package reload

import (
	"fmt"

	"github.com/clawcraft/gatekeeper/ports"
)

// ForMode builds the reloader named by mode: "rcon", "screen" or "none"
func ForMode(mode, rconAddr, rconPassword, screenSession string) (ports.Reloader, error) {
	switch mode {
	case "rcon":
		return NewRCON(rconAddr, rconPassword, 0), nil
	case "screen":
		return NewScreen(screenSession), nil
	case "", "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown reload mode %q", mode)
	}
}
