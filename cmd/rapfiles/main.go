// Command rapfiles is a small CLI over the rapfiles library.
//
// Usage:
//
//	rapfiles cat [--binary] [--lines] <file>...
//	rapfiles stat [--json] <file>...
//	rapfiles write [--append] <file>
//
// cat prints file contents (multiple files are read concurrently, output
// is printed in argument order); stat prints metadata snapshots; write
// copies stdin into a file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/eddiethedean/rapfiles"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "rapfiles: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: rapfiles <cat|stat|write> [flags] <file>...")
	}
	switch args[0] {
	case "cat":
		return cmdCat(ctx, args[1:])
	case "stat":
		return cmdStat(ctx, args[1:])
	case "write":
		return cmdWrite(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q (want cat, stat or write)", args[0])
	}
}

func cmdCat(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("cat", flag.ContinueOnError)
	binary := flags.Bool("binary", false, "open in binary mode (skip UTF-8 validation)")
	lines := flags.Bool("lines", false, "read line by line and number the output")
	if err := flags.Parse(args); err != nil {
		return err
	}
	paths := flags.Args()
	if len(paths) == 0 {
		return fmt.Errorf("cat: no files given")
	}

	mode := "r"
	if *binary {
		mode = "rb"
	}

	// Read concurrently, print in argument order.
	out := make([][]byte, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			return rapfiles.With(gctx, path, mode, func(h *rapfiles.Handle) error {
				if *lines {
					ls, err := h.ReadLines(gctx, -1)
					if err != nil {
						return err
					}
					var buf []byte
					for n, line := range ls {
						buf = append(buf, fmt.Sprintf("%6d\t", n+1)...)
						buf = append(buf, line...)
					}
					out[i] = buf
					return nil
				}
				data, err := h.Read(gctx, -1)
				out[i] = data
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, data := range out {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func cmdStat(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("stat", flag.ContinueOnError)
	asJSON := flags.Bool("json", false, "print snapshots as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}
	paths := flags.Args()
	if len(paths) == 0 {
		return fmt.Errorf("stat: no files given")
	}

	for _, path := range paths {
		snap, err := rapfiles.Stat(ctx, path)
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			if err := enc.Encode(map[string]any{
				"path":     path,
				"size":     snap.Size,
				"is_file":  snap.IsFile,
				"is_dir":   snap.IsDir,
				"modified": snap.Modified,
				"accessed": snap.Accessed,
				"created":  snap.Created,
			}); err != nil {
				return err
			}
			continue
		}
		kind := "other"
		switch {
		case snap.IsFile:
			kind = "file"
		case snap.IsDir:
			kind = "dir"
		}
		fmt.Printf("%s\t%s\t%d bytes\tmodified %.3f\n", path, kind, snap.Size, snap.Modified)
	}
	return nil
}

func cmdWrite(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("write", flag.ContinueOnError)
	appendTo := flags.Bool("append", false, "append instead of truncating")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("write: exactly one file required")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	if *appendTo {
		return rapfiles.AppendFile(ctx, flags.Arg(0), data)
	}
	return rapfiles.WriteFile(ctx, flags.Arg(0), data)
}
