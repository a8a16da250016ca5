package core

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfflineUUID(t *testing.T) {
	t.Run("matches manual construction", func(t *testing.T) {
		sum := md5.Sum([]byte("OfflinePlayer:Alice"))
		sum[6] = (sum[6] & 0x0f) | 0x30
		sum[8] = (sum[8] & 0x3f) | 0x80
		h := hex.EncodeToString(sum[:])
		want := h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]

		assert.Equal(t, want, OfflineUUID("Alice").String())
	})

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, OfflineUUID("Alice"), OfflineUUID("Alice"))
		assert.NotEqual(t, OfflineUUID("Alice"), OfflineUUID("alice"))
	})

	t.Run("version and variant", func(t *testing.T) {
		id := OfflineUUID("Notch")
		assert.Equal(t, 3, int(id.Version()))
		assert.Equal(t, "RFC4122", id.Variant().String())
		assert.Len(t, id.String(), 36)
	})
}
