package address

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the special-use suffix of onion service hosts.
	OnionSuffix = ".onion"

	// onionV3Version is the trailing version byte of a v3 onion address.
	onionV3Version = 0x03
)

// v3OnionLabel matches the 56 base32 characters of a v3 onion label.
var v3OnionLabel = regexp.MustCompile(`^[a-z2-7]{56}$`)

// onionChecksumPrefix is hashed in front of the key when computing
// the v3 address checksum.
var onionChecksumPrefix = []byte(".onion checksum")

// OnionServiceName returns the service label of an onion host, dropping
// any subdomain labels. "www.<label>.onion" yields "<label>.onion".
func OnionServiceName(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if !strings.HasSuffix(host, OnionSuffix) {
		return ""
	}
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	return labels[len(labels)-1] + OnionSuffix
}

// IsValidV3Onion reports whether host names a v3 onion service with a
// correct checksum. Subdomains in front of the service label are accepted.
func IsValidV3Onion(host string) bool {
	name := OnionServiceName(host)
	if name == "" {
		return false
	}
	label := strings.TrimSuffix(name, OnionSuffix)
	if !v3OnionLabel.MatchString(label) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(label))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey(32) || checksum(2) || version(1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}

	want := onionChecksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// onionChecksum is SHA3-256(".onion checksum" || pubkey || version)[:2].
func onionChecksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(onionChecksumPrefix)+len(pubkey)+1)
	data = append(data, onionChecksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}
