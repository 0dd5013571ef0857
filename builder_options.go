package bdzhash

import (
	"log/slog"

	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/hashfn"
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	workers        int
	seed           uint64
	loadFactor     float64
	rankBits       uint32
	hashFamily     HashFamily
	maxAttempts    int
	duplicateCheck bool
	userMetadata   []byte
	logger         *slog.Logger

	// hashOverride replaces the family's hash function. Tests use it to
	// force cyclic attempts; nil in production.
	hashOverride hashfn.Func
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		workers:        0, // Default to single-threaded; use WithWorkers(n) to parallelize
		seed:           0x1234567890abcdef,
		loadFactor:     bdz.DefaultLoadFactor,
		rankBits:       bdz.DefaultRankBits,
		hashFamily:     HashXXH3,
		maxAttempts:    bdz.DefaultMaxAttempts,
		duplicateCheck: true,
		logger:         slog.New(slog.DiscardHandler),
	}
}

// WithWorkers sets the number of build attempts run in parallel.
// The result is identical to a single-threaded build with the same seed.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithSeed sets the base hash seed. Attempt k hashes with a seed derived
// from this value and k.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = seed
	}
}

// WithLoadFactor sets c, the number of vertices per key. Must be greater
// than 1.0; values below about 1.23 make acyclic graphs unlikely.
func WithLoadFactor(c float64) BuildOption {
	return func(cfg *buildConfig) {
		cfg.loadFactor = c
	}
}

// WithRankBits sets b, so that one rank entry covers 2^b vertices. Smaller
// values use more memory and answer queries faster. Values outside [3, 10]
// fall back to 7.
func WithRankBits(b uint32) BuildOption {
	return func(c *buildConfig) {
		c.rankBits = bdz.NormalizeRankBits(b)
	}
}

// WithHashFamily selects the triple-hash family. Default is HashXXH3.
func WithHashFamily(f HashFamily) BuildOption {
	return func(c *buildConfig) {
		c.hashFamily = f
	}
}

// WithMaxAttempts bounds the number of seeds tried before the build fails
// with ErrRetryLimitExceeded. Default is 1000.
func WithMaxAttempts(n int) BuildOption {
	return func(c *buildConfig) {
		c.maxAttempts = n
	}
}

// WithDuplicateCheck enables or disables the explicit duplicate-key scan
// that runs before the first attempt. Enabled by default. Without it,
// duplicate keys surface as ErrRetryLimitExceeded after every attempt fails.
func WithDuplicateCheck(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.duplicateCheck = enabled
	}
}

// WithUserMetadata sets the variable-length user metadata.
// The metadata is copied, so the caller can reuse the slice after this call.
func WithUserMetadata(data []byte) BuildOption {
	return func(c *buildConfig) {
		c.userMetadata = append([]byte(nil), data...) // Copy slice
	}
}

// WithLogger sets the logger for build progress. Attempt failures are
// logged at Debug, the finished build at Info. Default discards everything.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// withHashOverride replaces the hash function for tests.
func withHashOverride(fn hashfn.Func) BuildOption {
	return func(c *buildConfig) {
		c.hashOverride = fn
	}
}

// hashFunc returns the hash function for the configured family.
func (c *buildConfig) hashFunc() (hashfn.Func, error) {
	if c.hashOverride != nil {
		return c.hashOverride, nil
	}
	return c.hashFamily.hashFunc()
}
