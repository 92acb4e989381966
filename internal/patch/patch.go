// Package patch recovers a game patch version string from the raw bytes of
// a replay container.
//
// The search is format-agnostic: the whole buffer is read as 7-bit ASCII
// text with NUL characters removed, and the first substring matching
// `\d{1,2}\.\d{1,2}(\.\d{1,2})?` wins. No header offset is used, so any
// earlier digit-dot-digit run (timestamps, stat values) is returned instead
// of the real patch. Callers must treat the result as a hint.
package patch

import (
	"os"
	"regexp"
)

var reVersion = regexp.MustCompile(`\d{1,2}\.\d{1,2}(\.\d{1,2})?`)

// Extract returns the first version-like string in data.
func Extract(data []byte) (string, bool) {
	m := reVersion.Find(printable(data))
	if m == nil {
		return "", false
	}
	return string(m), true
}

// FromFile reads path and runs [Extract] on its contents. An unreadable
// file yields no version.
func FromFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return Extract(data)
}

// printable returns a copy of data decoded as 7-bit ASCII text: the high
// bit of every byte is cleared and NUL bytes are dropped. data itself is
// not modified.
func printable(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		b &= 0x7f
		if b == 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}
