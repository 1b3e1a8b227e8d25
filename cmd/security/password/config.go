package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a strong baseline for interactive logins.
// Values are intentionally conservative and can be overridden via env.
func DefaultConfig() Config {
	// CPU-aware parallelism, clamped to [1..4] to keep resource usage
	// predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // reasonable default for interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// FromEnv loads Config from GAMESWAP_PASSWORD_* and GAMESWAP_ARGON2_*
// variables, starting from DefaultConfig. Blank values count as unset;
// out-of-range values are errors, not silently clamped.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	knobs := []struct {
		key      string
		min, max int64
		set      func(int64)
	}{
		{"GAMESWAP_PASSWORD_MIN_LEN", 1, 1024, func(v int64) { cfg.Policy.MinLength = int(v) }},
		{"GAMESWAP_PASSWORD_MAX_LEN", 1, 4096, func(v int64) { cfg.Policy.MaxLength = int(v) }},
		{"GAMESWAP_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, func(v int64) { cfg.Params.MemoryKiB = uint32(v) }},
		{"GAMESWAP_ARGON2_ITERATIONS", 1, 20, func(v int64) { cfg.Params.Iterations = uint32(v) }},
		{"GAMESWAP_ARGON2_PARALLELISM", 1, 64, func(v int64) { cfg.Params.Parallelism = uint8(v) }},
		{"GAMESWAP_ARGON2_SALT_LEN", 8, 64, func(v int64) { cfg.Params.SaltLength = uint32(v) }},
		{"GAMESWAP_ARGON2_KEY_LEN", 16, 64, func(v int64) { cfg.Params.KeyLength = uint32(v) }},
	}

	for _, k := range knobs {
		v, ok := lookupEnv(k.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s: not an integer", k.key)
		}
		if n < k.min || n > k.max {
			return Config{}, fmt.Errorf("%s: out of range [%d..%d]", k.key, k.min, k.max)
		}
		k.set(n) // conversions are safe: n is bounded by [min..max] above
	}

	if v, ok := lookupEnv("GAMESWAP_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("GAMESWAP_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

// lookupEnv treats blank values as unset.
func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
