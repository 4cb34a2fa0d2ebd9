package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kpumuk/swift-weaver/internal/files"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// document is one source with its syntax map.
type document struct {
	path   string
	idx    *text.Index
	tokens []syntaxmap.Token
}

// inputPaths expands the positional arguments into the source files to process.
func (a *app) inputPaths(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one input path is required (or use --stdin)")
	}
	seen := make(map[string]struct{})
	var out []string
	for _, arg := range args {
		found, err := files.Walk(ctx, arg, a.cfg.Files.Extensions)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			a.logger.Info("no source files", "path", arg)
		}
		for _, p := range found {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

// readSingle returns the one source named by args or by --stdin.
func (a *app) readSingle(args []string) (string, []byte, error) {
	switch {
	case a.stdinInput && len(args) > 0:
		return "", nil, errors.New("positional file path is not allowed with --stdin")
	case !a.stdinInput && len(args) != 1:
		return "", nil, errors.New("exactly one input file path is required (or use --stdin)")
	}
	if a.stdinInput {
		src, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		return a.stdinPath(), src, nil
	}
	//nolint:gosec // CLI intentionally reads user-provided file paths.
	src, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return args[0], src, nil
}

func (a *app) stdinPath() string {
	if a.assumeFilename != "" {
		return a.assumeFilename
	}
	return stdinName
}

func (a *app) parse(ctx context.Context, path string, src []byte) (document, error) {
	m, err := a.builder.Build(ctx, src)
	if err != nil {
		return document{}, fmt.Errorf("%s: build syntax map: %w", path, err)
	}
	a.logger.Debug("syntax map built", "path", path, "backend", a.builder.Name(), "tokens", len(m.Tokens))
	return document{path: path, idx: text.NewIndex(src).WithPath(path), tokens: m.Tokens}, nil
}

// analyze applies fn to every input document. Results keep the input order.
func analyze[T any](ctx context.Context, a *app, args []string, fn func(document) T) ([]T, error) {
	if a.stdinInput {
		path, src, err := a.readSingle(args)
		if err != nil {
			return nil, err
		}
		doc, err := a.parse(ctx, path, src)
		if err != nil {
			return nil, err
		}
		return []T{fn(doc)}, nil
	}

	paths, err := a.inputPaths(ctx, args)
	if err != nil {
		return nil, err
	}
	return forEachFile(ctx, paths, a.jobs, func(ctx context.Context, path string) (T, error) {
		var zero T
		//nolint:gosec // CLI intentionally reads user-provided file paths.
		src, err := os.ReadFile(path)
		if err != nil {
			return zero, fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := a.parse(ctx, path, src)
		if err != nil {
			return zero, err
		}
		return fn(doc), nil
	})
}

// forEachFile runs fn over paths on a bounded worker pool. The first error
// cancels the remaining work.
func forEachFile[T any](ctx context.Context, paths []string, workers int, fn func(context.Context, string) (T, error)) ([]T, error) {
	results := make([]T, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	workers = max(1, min(workers, len(paths)))

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int, workers*2)

	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				r, err := fn(ctx, paths[i])
				if err != nil {
					return err
				}
				results[i] = r
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := origCtx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
