package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewToken returns a 64-char lowercase hex capability token (256 bits).
func NewToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewApplicationNumber formats APP-YYYYMMDD-XXXXXX with an upper-case random suffix.
func NewApplicationNumber(now time.Time) string {
	return "APP-" + now.UTC().Format("20060102") + "-" + randomAlnum(6)
}

// NewClientRef returns an upper-case alphanumeric reference of n chars, prefixed.
// The prefix counts towards n; partner APIs cap references at 20 chars.
func NewClientRef(prefix string, n int) string {
	prefix = strings.ToUpper(prefix)
	if len(prefix) >= n {
		return prefix[:n]
	}
	return prefix + randomAlnum(n-len(prefix))
}

func randomAlnum(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	out := make([]byte, n)
	for i := range b {
		out[i] = alnum[int(b[i])%len(alnum)]
	}
	return string(out)
}
