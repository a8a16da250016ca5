package reload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen_Reload(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := NewScreen("mc-server").WithRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, "screen", gotName)
	assert.Equal(t, []string{"-S", "mc-server", "-p", "0", "-X", "stuff", "whitelist reload\n"}, gotArgs)
}

func TestScreen_ReloadError(t *testing.T) {
	s := NewScreen("mc-server").WithRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("no screen session found")
	})
	assert.ErrorContains(t, s.Reload(context.Background()), "mc-server")
}

func TestRCON_Unreachable(t *testing.T) {
	r := NewRCON("127.0.0.1:1", "secret", 200*time.Millisecond)
	assert.Error(t, r.Reload(context.Background()))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Reload(context.Background()))
}

func TestForMode(t *testing.T) {
	r, err := ForMode("rcon", "127.0.0.1:25575", "pw", "")
	require.NoError(t, err)
	assert.IsType(t, &RCON{}, r)

	r, err = ForMode("screen", "", "", "mc-server")
	require.NoError(t, err)
	assert.IsType(t, &Screen{}, r)

	r, err = ForMode("none", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, Nop{}, r)

	_, err = ForMode("telnet", "", "", "")
	assert.Error(t, err)
}
