// Command betree-cli is a thin launcher over the betree engine: it
// parses flags into an Options value and exposes insert/get/delete/
// debug subcommands against a single database path. Configuration and
// orchestration live here; none of this package's logic is part of
// the core engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/betreedb/betree/betree"
)

func main() {
	eps := flag.Float64("eps", float64(betree.DefaultOptions().Eps), "internal node buffer fraction")
	bufferSize := flag.Int("buffer-size", betree.DefaultOptions().BufferSize, "node cache capacity in pages")
	flushSB := flag.Bool("flush-superblock", true, "flush the superblock before exiting")
	flag.Parse()
	defer glog.Flush()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: betree-cli [flags] <db-path> <get|insert|delete|debug> [key] [value]")
		os.Exit(2)
	}
	path, cmd, rest := args[0], args[1], args[2:]

	opts := betree.Options{Eps: float32(*eps), BufferSize: *bufferSize}
	e, err := betree.Open(path, opts)
	if err != nil {
		glog.Fatalf("betree-cli: open %s: %v", path, err)
	}
	defer e.Close()

	switch cmd {
	case "get":
		if len(rest) != 1 {
			glog.Fatalf("betree-cli: get requires a key")
		}
		val, ok, err := e.Get([]byte(rest[0]))
		if err != nil {
			glog.Fatalf("betree-cli: get: %v", err)
		}
		if !ok {
			fmt.Println("<not found>")
			return
		}
		fmt.Println(string(val))
	case "insert":
		if len(rest) != 2 {
			glog.Fatalf("betree-cli: insert requires a key and a value")
		}
		if err := e.Insert([]byte(rest[0]), []byte(rest[1])); err != nil {
			glog.Fatalf("betree-cli: insert: %v", err)
		}
	case "delete":
		if len(rest) != 1 {
			glog.Fatalf("betree-cli: delete requires a key")
		}
		if err := e.Delete([]byte(rest[0])); err != nil {
			glog.Fatalf("betree-cli: delete: %v", err)
		}
	case "debug":
		out, err := e.DebugString()
		if err != nil {
			glog.Fatalf("betree-cli: debug: %v", err)
		}
		fmt.Print(out)
	default:
		glog.Fatalf("betree-cli: unknown command %q", cmd)
	}

	if *flushSB {
		if err := e.Flush(); err != nil {
			glog.Fatalf("betree-cli: flush: %v", err)
		}
	}
}
