package core

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflineUUID derives the identifier the game server assigns to a player
// connecting without online authentication: MD5("OfflinePlayer:"+name)
// stamped as a version 3, RFC 4122 variant UUID.
func OfflineUUID(username string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum)
}
