package bdzhash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestBuilderRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 20000, 16)
	idx, _ := buildAndOpen(t, keys, WithWorkers(4))
	verifyBijection(t, indexLookup(t, idx), keys)
	if err := idx.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

// TestBuilderKeyCountMismatch covers too few and too many keys. Both leave
// no file behind.
func TestBuilderKeyCountMismatch(t *testing.T) {
	keys := generateSequentialKeys(100)

	t.Run("TooFew", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "few.bdz")
		builder, err := NewBuilder(t.Context(), path, 101)
		if err != nil {
			t.Fatalf("NewBuilder: %v", err)
		}
		for _, key := range keys {
			if err := builder.AddKey(key); err != nil {
				t.Fatalf("AddKey: %v", err)
			}
		}
		if err := builder.Finish(); !errors.Is(err, bdzerrors.ErrKeyCountMismatch) {
			t.Fatalf("Finish: err = %v, want ErrKeyCountMismatch", err)
		}
		if fileExists(path) {
			t.Error("output file left behind after failed Finish")
		}
	})

	t.Run("TooMany", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "many.bdz")
		builder, err := NewBuilder(t.Context(), path, 99)
		if err != nil {
			t.Fatalf("NewBuilder: %v", err)
		}
		defer builder.Close()
		var addErr error
		for _, key := range keys {
			if addErr = builder.AddKey(key); addErr != nil {
				break
			}
		}
		if !errors.Is(addErr, bdzerrors.ErrKeyCountMismatch) {
			t.Fatalf("AddKey: err = %v, want ErrKeyCountMismatch", addErr)
		}
	})
}

func TestBuilderDuplicateKeys(t *testing.T) {
	keys := generateSequentialKeys(50)
	keys[49] = keys[0]
	path := filepath.Join(t.TempDir(), "dup.bdz")
	err := quickBuild(t, path, keys)
	if !errors.Is(err, bdzerrors.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if fileExists(path) {
		t.Error("output file left behind after failed build")
	}
}

func TestBuilderCloseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.bdz")
	builder, err := NewBuilder(t.Context(), path, 10)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if !fileExists(path) {
		t.Fatal("NewBuilder did not create the output file")
	}
	if err := builder.AddKey([]byte("k")); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	if err := builder.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fileExists(path) {
		t.Error("Close left the output file behind")
	}
	if err := builder.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := builder.AddKey([]byte("k")); !errors.Is(err, bdzerrors.ErrBuilderClosed) {
		t.Errorf("AddKey after Close: err = %v, want ErrBuilderClosed", err)
	}
	if err := builder.Finish(); !errors.Is(err, bdzerrors.ErrBuilderClosed) {
		t.Errorf("Finish after Close: err = %v, want ErrBuilderClosed", err)
	}
}

func TestBuilderUseAfterFinish(t *testing.T) {
	keys := generateSequentialKeys(10)
	path := filepath.Join(t.TempDir(), "done.bdz")
	builder, err := NewBuilder(t.Context(), path, uint64(len(keys)))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for _, key := range keys {
		if err := builder.AddKey(key); err != nil {
			t.Fatalf("AddKey: %v", err)
		}
	}
	if err := builder.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if err := builder.AddKey([]byte("late")); !errors.Is(err, bdzerrors.ErrBuilderClosed) {
		t.Errorf("AddKey after Finish: err = %v, want ErrBuilderClosed", err)
	}
	if err := builder.Finish(); !errors.Is(err, bdzerrors.ErrBuilderClosed) {
		t.Errorf("second Finish: err = %v, want ErrBuilderClosed", err)
	}
	// Close after a successful Finish keeps the file.
	if err := builder.Close(); err != nil {
		t.Errorf("Close after Finish: %v", err)
	}
	if !fileExists(path) {
		t.Fatal("Close after Finish removed the index")
	}
}

func TestBuilderCopiesKeys(t *testing.T) {
	keys := generateSequentialKeys(300)
	path := filepath.Join(t.TempDir(), "copy.bdz")
	builder, err := NewBuilder(t.Context(), path, uint64(len(keys)))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	buf := make([]byte, 0, 16)
	for _, key := range keys {
		buf = append(buf[:0], key...)
		if err := builder.AddKey(buf); err != nil {
			t.Fatalf("AddKey: %v", err)
		}
	}
	if err := builder.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	verifyBijection(t, indexLookup(t, idx), keys)
}

func TestNewBuilderErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		path  string
		total uint64
		opts  []BuildOption
		want  error
	}{
		{"ZeroKeys", filepath.Join(dir, "a.bdz"), 0, nil, bdzerrors.ErrEmptyKeySet},
		{"TooManyKeys", filepath.Join(dir, "b.bdz"), maxKeys + 1, nil, bdzerrors.ErrTooManyKeys},
		{"BadLoadFactor", filepath.Join(dir, "c.bdz"), 10, []BuildOption{WithLoadFactor(0.9)}, bdzerrors.ErrInvalidLoadFactor},
		{"BadHashFamily", filepath.Join(dir, "d.bdz"), 10, []BuildOption{WithHashFamily(HashFamily(100))}, bdzerrors.ErrUnknownHashFamily},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBuilder(t.Context(), tc.path, tc.total, tc.opts...); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if fileExists(tc.path) {
				t.Error("output file created for rejected arguments")
			}
		})
	}

	if _, err := NewBuilder(t.Context(), filepath.Join(dir, "missing", "x.bdz"), 10); err == nil {
		t.Error("NewBuilder into a missing directory succeeded")
	}
}

func TestBuilderKeyTooLong(t *testing.T) {
	builder, err := NewBuilder(t.Context(), filepath.Join(t.TempDir(), "long.bdz"), 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer builder.Close()
	if err := builder.AddKey(make([]byte, maxKeyLength+1)); !errors.Is(err, bdzerrors.ErrKeyTooLong) {
		t.Errorf("err = %v, want ErrKeyTooLong", err)
	}
}

func TestBuilderContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	path := filepath.Join(t.TempDir(), "canceled.bdz")
	keys := generateSequentialKeys(2 * contextCheckInterval)
	builder, err := NewBuilder(ctx, path, uint64(len(keys)))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer builder.Close()

	cancel()
	var addErr error
	for _, key := range keys {
		if addErr = builder.AddKey(key); addErr != nil {
			break
		}
	}
	if !errors.Is(addErr, context.Canceled) {
		t.Fatalf("AddKey: err = %v, want context.Canceled", addErr)
	}
	if err := builder.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fileExists(path) {
		t.Error("output file left behind after cancellation")
	}
}

// TestBuilderBoundedPrealloc checks that a large declared key count does not
// reserve memory for every key up front.
func TestBuilderBoundedPrealloc(t *testing.T) {
	dir := t.TempDir()
	for _, total := range []uint64{100, 5_000_000} {
		builder, err := NewBuilder(t.Context(), filepath.Join(dir, fmt.Sprintf("%d.bdz", total)), total)
		if err != nil {
			t.Fatalf("NewBuilder(%d): %v", total, err)
		}
		want := min(total, maxPreallocKeys)
		if got := uint64(cap(builder.keys.ends)); got != want {
			t.Errorf("total=%d: reserved %d key offsets, want %d", total, got, want)
		}
		if err := builder.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}
