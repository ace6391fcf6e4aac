// cas: CLI for the content-addressed object store.
// Commands: init, status, add, pack, cat.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/contentstore/cas/internal/casfs"
	"github.com/contentstore/cas/internal/config"
	"github.com/contentstore/cas/internal/container"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

const (
	exitOK             = 0
	exitUserError      = 1
	exitIOError        = 2
	exitNotInitialized = 3
)

func defaultRoot() string {
	if v := os.Getenv("CAS_ROOT"); v != "" {
		return v
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Join(wd, ".cas")
}

func rootFlag(args []string) (root string, rest []string) {
	root = defaultRoot()
	for i := 0; i < len(args); i++ {
		if args[i] == "--root" && i+1 < len(args) {
			root = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return root, rest
}

func openContainer(root string) (*container.Container, int) {
	c, err := container.Open(root)
	if err != nil {
		if errors.Is(err, casfs.ErrNotInitialized) {
			fmt.Fprintf(os.Stderr, "cas: %s is not an initialized container (run 'cas init' first)\n", root)
			return nil, exitNotInitialized
		}
		fmt.Fprintf(os.Stderr, "cas: %v\n", err)
		return nil, exitIOError
	}
	return c, exitOK
}

func cmdInit(args []string) int {
	root, rest := rootFlag(args)
	clear := false
	for _, a := range rest {
		if a == "--clear" {
			clear = true
		}
	}
	c, err := container.Init(root, config.Default(), clear)
	if err != nil {
		if errors.Is(err, casfs.ErrAlreadyInitialized) {
			fmt.Fprintf(os.Stderr, "cas init: %s is already initialized (use --clear to reinitialize)\n", root)
			return exitUserError
		}
		fmt.Fprintf(os.Stderr, "cas init: %v\n", err)
		return exitIOError
	}
	defer c.Close()
	fmt.Printf("initialized container at %s\n", root)
	return exitOK
}

func cmdStatus(args []string) int {
	root, rest := rootFlag(args)
	plain := false
	for _, a := range rest {
		if a == "--plain" {
			plain = true
		}
	}
	c, code := openContainer(root)
	if c == nil {
		return code
	}
	defer c.Close()

	st, err := c.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cas status: %v\n", err)
		return exitIOError
	}

	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("root:          %s\n", root)
		fmt.Printf("loose_count:   %d\n", st.LooseCount)
		fmt.Printf("loose_bytes:   %d\n", st.LooseBytes)
		fmt.Printf("packed_count:  %d\n", st.PackedCount)
		fmt.Printf("packed_bytes:  %d\n", st.PackedBytes)
		fmt.Printf("pack_files:    %d\n", st.PackFiles)
		fmt.Printf("pack_bytes:    %d\n", st.PackFileBytes)
		return exitOK
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"root", root})
	t.AppendRow(table.Row{"loose objects", st.LooseCount})
	t.AppendRow(table.Row{"loose bytes", st.LooseBytes})
	t.AppendRow(table.Row{"packed objects", st.PackedCount})
	t.AppendRow(table.Row{"packed bytes", st.PackedBytes})
	t.AppendRow(table.Row{"pack files", st.PackFiles})
	t.AppendRow(table.Row{"pack file bytes", st.PackFileBytes})
	t.Render()
	return exitOK
}

func cmdAdd(args []string) int {
	root, rest := rootFlag(args)
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "cas add: usage: cas add [--root DIR] <path...>")
		return exitUserError
	}
	c, code := openContainer(root)
	if c == nil {
		return code
	}
	defer c.Close()

	exit := exitOK
	for _, path := range rest {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cas add: %v\n", err)
			exit = exitIOError
			continue
		}
		dig, err := c.Insert(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cas add: %s: %v\n", path, err)
			exit = exitIOError
			continue
		}
		fmt.Printf("%s  %s\n", dig, path)
	}
	return exit
}

func cmdPack(args []string) int {
	root, rest := rootFlag(args)
	mode := container.Auto
	for i := 0; i < len(rest); i++ {
		if rest[i] == "--compress" && i+1 < len(rest) {
			switch rest[i+1] {
			case "auto":
				mode = container.Auto
			case "yes", "always":
				mode = container.Always
			case "no", "never":
				mode = container.Never
			default:
				fmt.Fprintf(os.Stderr, "cas pack: unknown --compress value %q\n", rest[i+1])
				return exitUserError
			}
			i++
		}
	}
	c, code := openContainer(root)
	if c == nil {
		return code
	}
	defer c.Close()

	stats, err := c.PackAllLoose(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cas pack: %v\n", err)
		return exitIOError
	}
	fmt.Printf("packed %d objects (%d raw bytes, %d compressed bytes)\n",
		stats.ObjectsPacked, stats.BytesPacked, stats.BytesCompressed)
	return exitOK
}

func cmdCat(args []string) int {
	root, rest := rootFlag(args)
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "cas cat: usage: cas cat [--root DIR] <digest>")
		return exitUserError
	}
	c, code := openContainer(root)
	if c == nil {
		return code
	}
	defer c.Close()

	rc, err := c.Extract(rest[0])
	if err != nil {
		if errors.Is(err, casfs.ErrNotFound) || errors.Is(err, casfs.ErrInvalidDigest) {
			fmt.Fprintf(os.Stderr, "cas cat: %v\n", err)
			return exitUserError
		}
		fmt.Fprintf(os.Stderr, "cas cat: %v\n", err)
		return exitIOError
	}
	defer rc.Close()
	if _, err := io.Copy(os.Stdout, rc); err != nil {
		fmt.Fprintf(os.Stderr, "cas cat: %v\n", err)
		return exitIOError
	}
	return exitOK
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("cas: content-addressed object store")
		fmt.Println("Usage: cas <init|status|add|pack|cat> [--root DIR] ...")
		os.Exit(exitOK)
	}
	var code int
	switch os.Args[1] {
	case "init":
		code = cmdInit(os.Args[2:])
	case "status":
		code = cmdStatus(os.Args[2:])
	case "add":
		code = cmdAdd(os.Args[2:])
	case "pack":
		code = cmdPack(os.Args[2:])
	case "cat":
		code = cmdCat(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "cas: unknown command %q\n", os.Args[1])
		code = exitUserError
	}
	os.Exit(code)
}
