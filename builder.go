package bdzhash

import (
	"context"
	"errors"
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	intbits "github.com/tamirms/bdzhash/internal/bits"
)

const (
	// contextCheckInterval is how often to check for context cancellation during AddKey.
	contextCheckInterval = 10000

	// maxKeys is the maximum number of keys. It keeps m = 3r below 2^32 so
	// that vertices fit in uint32.
	maxKeys = uint64(bdz.MaxKeys)

	// maxPreallocKeys caps the key offsets reserved by NewBuilder; beyond it
	// the arena grows as keys arrive.
	maxPreallocKeys = 1 << 16
)

// Build constructs a minimal perfect hash function over the keys of src.
//
// Keys must be distinct. With the default duplicate check, a repeated key
// fails fast with ErrDuplicateKey. If no attempt yields an acyclic
// hypergraph, Build returns ErrRetryLimitExceeded wrapping the last
// ErrCyclicGraph.
func Build(ctx context.Context, src KeySource, opts ...BuildOption) (*MPHF, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return build(ctx, src, cfg)
}

// BuildStrings is Build over a string slice.
func BuildStrings(ctx context.Context, keys []string, opts ...BuildOption) (*MPHF, error) {
	return Build(ctx, StringSource(keys), opts...)
}

// build runs validation and the seed search for a configured build.
func build(ctx context.Context, src KeySource, cfg *buildConfig) (*MPHF, error) {
	if err := validateKeys(src); err != nil {
		return nil, err
	}
	hash, err := cfg.hashFunc()
	if err != nil {
		return nil, err
	}
	n := src.NumKeys()
	r, err := bdz.PartitionSize(uint32(n), cfg.loadFactor)
	if err != nil {
		return nil, err
	}

	if cfg.duplicateCheck {
		if err := checkDuplicates(src); err != nil {
			return nil, err
		}
	}

	result, err := newSeedSearch(src, r, hash, cfg).run(ctx)
	if err != nil {
		return nil, err
	}

	hdr := &header{
		HashFamily:    cfg.hashFamily,
		NumKeys:       uint64(n),
		NumVertices:   3 * r,
		PartitionSize: r,
		Seed:          result.seed,
		RankBits:      uint8(cfg.rankBits),
	}
	f, err := newMPHF(hdr, result.labels, cfg.userMetadata, hash)
	if err != nil {
		return nil, err
	}

	cfg.logger.Info("bdz build complete",
		"keys", n,
		"vertices", 3*r,
		"attempts", result.attempt+1,
		"seed", result.seed,
		"bits_per_key", f.BitsPerKey())
	return f, nil
}

// Builder provides an AddKey-style API for building an index file.
//
// Usage:
//
//	builder, err := bdzhash.NewBuilder(ctx, "index.bdz", totalKeys, opts...)
//	if err != nil { return err }
//	defer builder.Close() // Clean up on error
//
//	for _, key := range keys {
//	    if err := builder.AddKey(key); err != nil { return err }
//	}
//	return builder.Finish()
//
// Keys are copied into an internal arena; BDZ needs the whole key set for
// every attempt, so memory grows with the total key bytes.
type Builder struct {
	ctx        context.Context
	cfg        *buildConfig
	iw         *indexWriter
	totalKeys  uint64
	keyCounter int
	closed     bool

	keys arenaKeys
}

// arenaKeys is a KeySource over keys packed back to back.
type arenaKeys struct {
	data []byte
	ends []uint64 // ends[i] is one past the last byte of key i
}

func (a *arenaKeys) add(key []byte) {
	a.data = append(a.data, key...)
	a.ends = append(a.ends, uint64(len(a.data)))
}

// NumKeys implements KeySource.
func (a *arenaKeys) NumKeys() int { return len(a.ends) }

// Key implements KeySource.
func (a *arenaKeys) Key(i int) []byte {
	var start uint64
	if i > 0 {
		start = a.ends[i-1]
	}
	return a.data[start:a.ends[i]]
}

// NewBuilder creates a builder writing an index for exactly totalKeys keys
// to output. The output file is created and sized immediately.
func NewBuilder(ctx context.Context, output string, totalKeys uint64, opts ...BuildOption) (*Builder, error) {
	if totalKeys == 0 {
		return nil, bdzerrors.ErrEmptyKeySet
	}
	if totalKeys > maxKeys {
		return nil, bdzerrors.ErrTooManyKeys
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if _, err := cfg.hashFunc(); err != nil {
		return nil, err
	}

	// The file size depends only on n, c and the metadata length.
	r, err := bdz.PartitionSize(uint32(totalKeys), cfg.loadFactor)
	if err != nil {
		return nil, err
	}
	layout := computeLayout(len(cfg.userMetadata), uint64(intbits.LabelBytes(3*r)))

	iw, err := newIndexWriter(output, layout)
	if err != nil {
		return nil, fmt.Errorf("create index writer: %w", err)
	}

	return &Builder{
		ctx:       ctx,
		cfg:       cfg,
		iw:        iw,
		totalKeys: totalKeys,
		keys: arenaKeys{
			ends: make([]uint64, 0, min(totalKeys, maxPreallocKeys)),
		},
	}, nil
}

// AddKey adds a key. The key is copied.
func (b *Builder) AddKey(key []byte) error {
	if b.closed {
		return bdzerrors.ErrBuilderClosed
	}
	if len(key) > maxKeyLength {
		return bdzerrors.ErrKeyTooLong
	}
	if uint64(b.keys.NumKeys()) >= b.totalKeys {
		return fmt.Errorf("%w: more than %d keys added", bdzerrors.ErrKeyCountMismatch, b.totalKeys)
	}

	// Check context periodically
	b.keyCounter++
	if b.keyCounter >= contextCheckInterval {
		b.keyCounter = 0
		if err := b.ctx.Err(); err != nil {
			return err
		}
	}

	b.keys.add(key)
	return nil
}

// Finish builds the hash function and writes the index file.
// After calling Finish, the builder cannot be used again.
func (b *Builder) Finish() error {
	if b.closed {
		return bdzerrors.ErrBuilderClosed
	}
	b.closed = true

	// Validate key count matches declared total
	if added := uint64(b.keys.NumKeys()); added != b.totalKeys {
		primaryErr := fmt.Errorf("%w: expected %d, got %d", bdzerrors.ErrKeyCountMismatch, b.totalKeys, added)
		return errors.Join(primaryErr, b.iw.abort())
	}

	f, err := build(b.ctx, &b.keys, b.cfg)
	if err != nil {
		return errors.Join(err, b.iw.abort())
	}
	if err := b.iw.write(f); err != nil {
		return errors.Join(err, b.iw.abort())
	}
	if err := b.iw.finalize(); err != nil {
		return errors.Join(err, b.iw.abort())
	}
	return nil
}

// Close aborts the build and removes the output file.
// Safe to call after Finish(); it is then a no-op.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.keys = arenaKeys{}
	return b.iw.abort()
}
