package slogx

import (
	"log/slog"
	"strings"
)

// redactPrefix is how much of a secret survives for log correlation.
const redactPrefix = 6

var secretKeys = map[string]struct{}{
	"client_secret":       {},
	"access_token":        {},
	"refresh_token":       {},
	"subject_token":       {},
	"matrix_access_token": {},
	"authorization":       {},
	"private_key":         {},
	"token":               {},
}

// Redact keeps a short prefix of s and masks the rest.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= redactPrefix {
		return "***"
	}
	return s[:redactPrefix] + "***"
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, Redact(a.Value.String()))
	}
	return a
}
