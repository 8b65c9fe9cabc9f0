package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Hex4 formats a uint16 as a 4-character hexadecimal string (e.g., "0499")
// Helper for company id formatting without pulling in fmt everywhere in logs
func Hex4(v uint16) string {
	const hexd = "0123456789ABCDEF"
	return string([]byte{
		hexd[(v>>12)&0xF],
		hexd[(v>>8)&0xF],
		hexd[(v>>4)&0xF],
		hexd[v&0xF],
	})
}

// BytesToHex converts a byte slice to a hexadecimal string
func BytesToHex(b []byte) string {
	const hexd = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexd[x>>4], hexd[x&0x0F])
	}
	return string(out)
}

// ParseHex decodes a hex string, ignoring whitespace and the ':' and '-'
// separators used when payloads are copied out of scanner tools.
func ParseHex(s string) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == ':' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	clean := b.String()
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex payload must contain an even number of digits, got %d", len(clean))
	}
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return out, nil
}
