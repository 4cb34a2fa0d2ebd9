package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kpumuk/swift-weaver/internal/docindex"
	"github.com/kpumuk/swift-weaver/internal/docs"
)

const defaultIndexPath = "swiftdoc.db"

type indexedFile struct {
	path    string
	hash    string
	entries []docs.Entry
}

func (a *app) indexCommand() *cobra.Command {
	var (
		dbPath string
		prune  bool
	)
	cmd := &cobra.Command{
		Use:   "index [flags] path...",
		Short: "Store documented tokens in a searchable SQLite index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			results, err := analyze(ctx, a, args, func(d document) indexedFile {
				return indexedFile{
					path:    d.path,
					hash:    docindex.ContentHash([]byte(d.idx.Source())),
					entries: a.classifier.Entries(d.idx, d.tokens),
				}
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return errIssues
			}

			ix, err := docindex.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer ix.Close()

			updated, unchanged, entries := 0, 0, 0
			for _, r := range results {
				entries += len(r.entries)
				fresh, err := ix.Fresh(ctx, r.path, r.hash)
				if err != nil {
					return err
				}
				if fresh {
					a.logger.Debug("unchanged", "path", r.path)
					unchanged++
					continue
				}
				if err := ix.Replace(ctx, r.path, r.hash, r.entries); err != nil {
					return err
				}
				a.logger.Debug("indexed", "path", r.path, "entries", len(r.entries))
				updated++
			}

			removed := 0
			if prune {
				removed, err = pruneIndex(ctx, ix, results)
				if err != nil {
					return err
				}
			}
			writef(a.stdout, "%s: %d updated, %d unchanged, %d removed, %d entries\n",
				a.styles.path.Sprint(dbPath), updated, unchanged, removed, entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultIndexPath, "index database path")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop indexed files not named by this run")
	return cmd
}

func pruneIndex(ctx context.Context, ix *docindex.Index, keep []indexedFile) (int, error) {
	seen := make(map[string]struct{}, len(keep))
	for _, r := range keep {
		seen[r.path] = struct{}{}
	}
	paths, err := ix.Paths(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := ix.Remove(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (a *app) searchCommand() *cobra.Command {
	var (
		dbPath string
		format string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search [flags] query",
		Short: "Search an index for documented tokens by name or comment text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isSupportedOutputFormat(format) {
				return errors.New("--format must be one of: text, json")
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			ix, err := docindex.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer ix.Close()

			results, err := ix.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if format == outputFormatJSON {
				if results == nil {
					results = []docindex.Result{}
				}
				if err := writeJSON(a.stdout, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					a.writeEntry(r.Path, nil, r.Entry, true)
				}
			}
			if len(results) == 0 {
				return errIssues
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultIndexPath, "index database path")
	cmd.Flags().StringVar(&format, "format", outputFormatText, "output format: text|json")
	cmd.Flags().IntVar(&limit, "limit", docindex.DefaultSearchLimit, "maximum number of results")
	return cmd
}
