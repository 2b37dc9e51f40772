// Command betree-bench drives a fixed-seed bulk load against a fresh
// database and reports throughput, mirroring the 480,000-pair dataset
// used by the engine's own bulk-insert test but as a standalone,
// runnable benchmark.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/betreedb/betree/betree"
)

func main() {
	eps := flag.Float64("eps", float64(betree.DefaultOptions().Eps), "internal node buffer fraction")
	bufferSize := flag.Int("buffer-size", betree.DefaultOptions().BufferSize, "node cache capacity in pages")
	count := flag.Int("count", 480000, "number of key/value pairs to insert")
	seed := flag.Int64("seed", 69420, "PRNG seed for the generated dataset")
	dir := flag.String("dir", "", "database directory (temp dir if empty)")
	flag.Parse()

	path := *dir
	if path == "" {
		tmp, err := os.MkdirTemp("", "betree-bench-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "betree-bench: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		path = tmp + "/bench.betree"
	}

	opts := betree.Options{Eps: float32(*eps), BufferSize: *bufferSize}
	e, err := betree.New(path, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "betree-bench: open: %v\n", err)
		os.Exit(1)
	}
	defer e.Close()

	rng := rand.New(rand.NewSource(*seed))
	keys := make([]uint64, *count)
	vals := make([]uint64, *count)
	for i := range keys {
		keys[i] = rng.Uint64()
		vals[i] = rng.Uint64()
	}

	fmt.Printf("inserting %s pairs (seed=%d, eps=%.2f, buffer_size=%d)\n",
		humanize.Comma(int64(*count)), *seed, opts.Eps, opts.BufferSize)

	start := time.Now()
	keyBuf, valBuf := make([]byte, 8), make([]byte, 8)
	for i := range keys {
		binary.LittleEndian.PutUint64(keyBuf, keys[i])
		binary.LittleEndian.PutUint64(valBuf, vals[i])
		if err := e.Insert(append([]byte(nil), keyBuf...), append([]byte(nil), valBuf...)); err != nil {
			fmt.Fprintf(os.Stderr, "betree-bench: insert #%d: %v\n", i, err)
			os.Exit(1)
		}
	}
	insertElapsed := time.Since(start)

	if err := e.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "betree-bench: flush: %v\n", err)
		os.Exit(1)
	}
	flushElapsed := time.Since(start) - insertElapsed

	fmt.Printf("insert: %s in %s (%s ops/sec)\n",
		humanize.Comma(int64(*count)), insertElapsed, humanize.Comma(int64(float64(*count)/insertElapsed.Seconds())))
	fmt.Printf("flush:  %s\n", flushElapsed)

	start = time.Now()
	for i := range keys {
		binary.LittleEndian.PutUint64(keyBuf, keys[i])
		val, ok, err := e.Get(keyBuf)
		if err != nil || !ok {
			fmt.Fprintf(os.Stderr, "betree-bench: missing key #%d after bulk insert\n", i)
			os.Exit(1)
		}
		if binary.LittleEndian.Uint64(val) != vals[i] {
			fmt.Fprintf(os.Stderr, "betree-bench: value mismatch on key #%d\n", i)
			os.Exit(1)
		}
	}
	getElapsed := time.Since(start)
	fmt.Printf("verify: %s gets in %s (%s ops/sec)\n",
		humanize.Comma(int64(*count)), getElapsed, humanize.Comma(int64(float64(*count)/getElapsed.Seconds())))
}
