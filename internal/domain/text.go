package domain

import "unicode/utf8"

// TruncateUTF8 returns at most n bytes of s without splitting a multi-byte rune
func TruncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
