package ics

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// UID returns the stable identifier of the occurrence of summary in year:
// the lowercase hex SHA-256 of the year as a big-endian int32 followed by
// the UTF-8 summary.
func UID(year int32, summary string) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(year))
	h := sha256.New()
	h.Write(buf[:])
	h.Write([]byte(summary))
	return hex.EncodeToString(h.Sum(nil))
}
