// Bench builds a BDZ index over random keys and reports build time, query
// latency and peak memory.
//
// Usage:
//
//	go run ./cmd/bench -keys 10000000 -hash xxh3 -workers 4
//
// Flags:
//
//	-keys      Keys to generate and index (default 10000000)
//	-keylen    Key length in bytes (default 16)
//	-hash      Hash family: xxh3, murmur3 or jenkins (default xxh3)
//	-c         Load factor, vertices per key (default 1.23)
//	-b         Rank bits, log2 vertices per rank entry (default 7)
//	-workers   Number of parallel build attempts (default 1)
//	-seed      Base hash seed (default 0x1234567890abcdef)
//	-verbose   Log build attempts to stderr
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tamirms/bdzhash"
)

// peakRSS reports the process high-water RSS in bytes.
func peakRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	rss := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		rss <<= 10 // kilobytes
	}
	return rss
}

// peakSampler polls heap and RSS every 10ms and keeps the maxima seen.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startPeakSampler(baseHeap, baseRSS uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(baseHeap)
	s.rss.Store(baseRSS)
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, peakRSS())
			}
		}
	}()
	return s
}

func (s *peakSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, peakRSS())
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func main() {
	keysFlag := flag.Int("keys", 10_000_000, "keys to generate and index")
	keyLenFlag := flag.Int("keylen", 16, "key length in bytes")
	hashFlag := flag.String("hash", "xxh3", "hash family: xxh3, murmur3 or jenkins")
	loadFlag := flag.Float64("c", 1.23, "load factor (vertices per key)")
	rankFlag := flag.Uint("b", 7, "rank bits (log2 vertices per rank entry)")
	workersFlag := flag.Int("workers", 1, "number of parallel build attempts")
	seedFlag := flag.Uint64("seed", 0x1234567890abcdef, "base hash seed")
	verboseFlag := flag.Bool("verbose", false, "log build attempts to stderr")
	cpuprofile := flag.String("cpuprofile", "", "write a CPU profile of the build to this file")
	memprofile := flag.String("memprofile", "", "write a heap profile taken after the build to this file")
	flag.Parse()

	numKeys := *keysFlag
	family, err := bdzhash.ParseHashFamily(*hashFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Generating random keys...")
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = make([]byte, *keyLenFlag)
		_, _ = rand.Read(keys[i])
	}

	tmpDir, err := os.MkdirTemp("", "bdzbench-")
	if err != nil {
		fmt.Printf("temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	indexPath := filepath.Join(tmpDir, "test.bdz")

	logger := slog.New(slog.DiscardHandler)
	if *verboseFlag {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	opts := []bdzhash.BuildOption{
		bdzhash.WithHashFamily(family),
		bdzhash.WithLoadFactor(*loadFlag),
		bdzhash.WithRankBits(uint32(*rankFlag)),
		bdzhash.WithWorkers(*workersFlag),
		bdzhash.WithSeed(*seedFlag),
		bdzhash.WithLogger(logger),
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := peakRSS()
	sampler := startPeakSampler(baseline.Alloc, baselineRSS)

	// Only the build phase is profiled.
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("cpuprofile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("cpuprofile: %v\n", err)
			return
		}
	}

	fmt.Println("Building index...")
	buildStart := time.Now()
	builder, err := bdzhash.NewBuilder(context.Background(), indexPath, uint64(numKeys), opts...)
	if err != nil {
		fmt.Printf("NewBuilder failed: %v\n", err)
		return
	}
	for _, key := range keys {
		if err := builder.AddKey(key); err != nil {
			_ = builder.Close()
			fmt.Printf("AddKey failed: %v\n", err)
			return
		}
	}
	err = builder.Finish()
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("memprofile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("memprofile: %v\n", err)
			}
			_ = f.Close()
		}
	}

	sampler.stop()
	peakHeapMem := sampler.heap.Load() - baseline.Alloc
	peakRSSMem := sampler.rss.Load() - baselineRSS

	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	idx, err := bdzhash.Open(indexPath)
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer func() { _ = idx.Close() }()
	stats := idx.Stats()

	// Every key is queried once to check the index; this also warms the mapping.
	fmt.Println("Verifying index...")
	seen := make([]bool, numKeys)
	for i, key := range keys {
		v, err := idx.Query(key)
		if err != nil || int(v) >= numKeys || seen[v] {
			fmt.Printf("Key %d maps to %d: not a minimal perfect hash (err=%v)\n", i, v, err)
			return
		}
		seen[v] = true
	}

	queryOrder := mrand.Perm(numKeys)

	fmt.Println("Timing queries in random order...")
	numQueries := 100000
	queryStart := time.Now()
	for i := 0; i < numQueries; i++ {
		_, _ = idx.Query(keys[queryOrder[i%numKeys]])
	}
	queryDuration := time.Since(queryStart)
	avgLatency := float64(queryDuration.Nanoseconds()) / float64(numQueries) / 1000

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Hash: %-14s║ c=%-5.3f b=%-3d ║\n", stats.HashFamily, *loadFlag, stats.RankBits)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Keys                ║ %14d ║\n", stats.NumKeys)
	fmt.Printf("║ Vertices            ║ %14d ║\n", stats.NumVertices)
	fmt.Printf("║ Bits per key (mem)  ║ %6.3f bits/key║\n", stats.BitsPerKey)
	fmt.Printf("║ Bits per key (file) ║ %6.3f bits/key║\n", stats.FileBits)
	fmt.Printf("║ Query latency       ║ %6.2f μs      ║\n", avgLatency)
	fmt.Printf("║ Build time          ║ %6.2f sec     ║\n", buildDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║\n", float64(numKeys)/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
