package visitors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
)

// Fingerprint derives a stable pseudo-identifier from client IP and user
// agent. It is a device+network identity, not a session or account identity:
// the same client hashes to the same value across requests, distinct clients
// collide only with negligible probability, and occasional collisions are
// acceptable since the fingerprint only drives approximate counting and
// roster display. IP addresses are never stored in the identifier, only hashed.
func Fingerprint(ipAddress, userAgent, salt string) string {
	data := fmt.Sprintf("%s.%s.%s", salt, ipAddress, userAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// IsInternalIP reports whether the address is loopback or inside a private
// network range (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, ::1). Visits from
// these addresses are the operator's own and are filtered from visitor output.
func IsInternalIP(address string) bool {
	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
