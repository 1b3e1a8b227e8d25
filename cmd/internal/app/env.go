package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env helpers fall back to def on missing, blank, or unparseable
// values. Startup never fails on a bad tuning knob; security material
// is validated separately by ValidateSecurityConfig.

func envValue(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func envString(key, def string) string {
	if v, ok := envValue(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := envValue(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envInt accepts positive integers only.
func envInt(key string, def int) int {
	v, ok := envValue(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return def
}

// envInt32 accepts non-negative integers; zero is meaningful for pool
// minimums.
func envInt32(key string, def int32) int32 {
	v, ok := envValue(key)
	if !ok {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 32); err == nil && n >= 0 {
		return int32(n)
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := envValue(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}

// envCSV splits a comma-separated value, dropping blank entries.
func envCSV(key, def string) []string {
	raw, ok := envValue(key)
	if !ok {
		raw = def
	}
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
