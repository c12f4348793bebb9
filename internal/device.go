package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashBindingValue hashes an address or device signature for use in backend keys,
// keeping raw user agents out of key names.
func HashBindingValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// BindingKey returns a short hex digest of v suitable for a key segment.
func BindingKey(v string) string {
	h := HashBindingValue(v)
	return hex.EncodeToString(h[:12])
}

// NormalizeSignature trims and lowercases a device signature and collapses inner whitespace.
func NormalizeSignature(sig string) string {
	return strings.Join(strings.Fields(strings.ToLower(sig)), " ")
}

// TruncateSignature returns the first max bytes of the normalized signature.
// It never splits a multi-byte rune.
func TruncateSignature(sig string, max int) string {
	sig = NormalizeSignature(sig)
	if max <= 0 || len(sig) <= max {
		return sig
	}
	cut := max
	for cut > 0 && !runeStart(sig[cut]) {
		cut--
	}
	return sig[:cut]
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}

// IdentityKey builds the ledger key for an address and device signature:
// the address, a '|' and at most prefixLen bytes of the normalized signature.
func IdentityKey(address, signature string, prefixLen int) string {
	return address + "|" + TruncateSignature(signature, prefixLen)
}
