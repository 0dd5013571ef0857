// Package bdzhash implements the BDZ minimal perfect hash function (MPHF):
// a compact, O(1) mapping from a fixed set of n distinct keys onto
// {0, ..., n-1}.
//
// Each key is hashed to an edge of a random 3-uniform hypergraph with
// m = 3r vertices, r a prime near 1.23n/3. When the hypergraph peels to
// nothing, every vertex gets a 2-bit label such that the labels of a key's
// three vertices select one vertex owned by that key alone. Counting the
// labelled vertices before it turns that vertex into the key's index. A
// build costs about 2.5 bits per key for labels plus 0.3 for the rank table.
//
// # Basic Usage
//
// Building in memory:
//
//	f, err := bdzhash.BuildStrings(ctx, []string{"apple", "banana", "cherry"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	i := f.Lookup([]byte("banana")) // in [0, 3)
//
// Building an index file:
//
//	builder, err := bdzhash.NewBuilder(ctx, "keys.bdz", totalKeys)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer builder.Close()
//	for _, key := range keys {
//	    if err := builder.AddKey(key); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := builder.Finish(); err != nil {
//	    log.Fatal(err)
//	}
//
// Querying an index file:
//
//	idx, err := bdzhash.Open("keys.bdz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	i, err := idx.Query([]byte("mykey"))
//
// Keys outside the build set map to arbitrary indexes; the structure stores
// no keys and cannot detect non-members.
//
// # Package Structure
//
//   - Public API: builder.go (Build, NewBuilder), mphf.go (MPHF, Lookup, Slot), index.go (Open, Query)
//   - Configuration: builder_options.go (BuildOption, With* functions), algorithm.go (HashFamily)
//   - Key input: key.go (KeySource, SliceSource, StringSource, FileSource), prehash.go (duplicate check)
//   - Seed search: builder_parallel.go (sequential and parallel attempts)
//   - Serialization: header.go (header, footer, layout), index_writer.go (Save)
//   - BDZ core: internal/bdz (solve, assign, rank), internal/hypergraph (peeling)
//   - Support: internal/primes (Miller-Rabin), internal/pattern (rank tables), internal/hashfn
//   - Platform: sysio_*.go (preallocation, prefault and read-ahead hints)
package bdzhash
