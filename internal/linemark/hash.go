package linemark

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdentifierLen is the length of a note identifier: a hex-encoded SHA-256.
const IdentifierLen = sha256.Size * 2

// HashLine maps a line's exact text to its storage identifier. The digest
// covers the raw UTF-8 bytes with no normalization, so two lines differing
// only in trailing whitespace get distinct identifiers, while identical
// lines anywhere in the workspace share one.
func HashLine(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IsIdentifier reports whether name looks like a note identifier. The store
// directory is shared with editors and temp files; anything that is not a
// 64-char lowercase hex string is ignored.
func IsIdentifier(name string) bool {
	if len(name) != IdentifierLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c >= 'a' && c <= 'f' {
			continue
		}
		return false
	}
	return true
}
