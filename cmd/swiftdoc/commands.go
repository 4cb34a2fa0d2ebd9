package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpumuk/swift-weaver/internal/comment"
	"github.com/kpumuk/swift-weaver/internal/decl"
	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/text"
)

type offsetsJSON struct {
	Path    string            `json:"path"`
	Offsets []text.ByteOffset `json:"offsets"`
}

type docsJSON struct {
	Path    string       `json:"path"`
	Entries []docs.Entry `json:"entries"`
}

func (a *app) offsetsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "offsets [flags] path...",
		Short: "Print the byte offsets of documented tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isSupportedOutputFormat(format) {
				return errors.New("--format must be one of: text, json")
			}
			results, err := analyze(cmd.Context(), a, args, func(d document) offsetsJSON {
				offsets := a.classifier.DocumentedTokenOffsets(d.idx, d.tokens)
				if offsets == nil {
					offsets = []text.ByteOffset{}
				}
				return offsetsJSON{Path: d.path, Offsets: offsets}
			})
			if err != nil {
				return err
			}

			total := 0
			for _, r := range results {
				total += len(r.Offsets)
			}
			if format == outputFormatJSON {
				if err := writeJSON(a.stdout, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					for _, off := range r.Offsets {
						writef(a.stdout, "%s:%s\n", a.styles.path.Sprint(r.Path), a.styles.offset.Sprint(off))
					}
				}
			}
			if total == 0 {
				return errIssues
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", outputFormatText, "output format: text|json")
	return cmd
}

func (a *app) docsCommand() *cobra.Command {
	var (
		format string
		utf16  bool
	)
	cmd := &cobra.Command{
		Use:   "docs [flags] path...",
		Short: "Print documented tokens with their comments and declarations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isSupportedOutputFormat(format) {
				return errors.New("--format must be one of: text, json")
			}
			type fileDocs struct {
				docsJSON
				idx *text.Index
			}
			results, err := analyze(cmd.Context(), a, args, func(d document) fileDocs {
				entries := a.classifier.Entries(d.idx, d.tokens)
				for _, e := range entries {
					if e.Kind == "" {
						a.logger.Debug("no declaration", "path", d.path, "name", e.Name, "offset", e.Offset)
					}
				}
				if entries == nil {
					entries = []docs.Entry{}
				}
				return fileDocs{docsJSON: docsJSON{Path: d.path, Entries: entries}, idx: d.idx}
			})
			if err != nil {
				return err
			}

			total := 0
			out := make([]docsJSON, 0, len(results))
			for _, r := range results {
				total += len(r.Entries)
				out = append(out, r.docsJSON)
			}
			if format == outputFormatJSON {
				if err := writeJSON(a.stdout, out); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					for _, e := range r.Entries {
						a.writeEntry(r.Path, r.idx, e, utf16)
					}
				}
			}
			if total == 0 {
				return errIssues
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", outputFormatText, "output format: text|json")
	cmd.Flags().BoolVar(&utf16, "utf16", false, "report columns in UTF-16 code units")
	return cmd
}

func (a *app) linesCommand() *cobra.Command {
	var start, length int
	cmd := &cobra.Command{
		Use:   "lines --start N --length N [path]",
		Short: "Print the whole lines touched by a byte range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, src, err := a.readSingle(args)
			if err != nil {
				return err
			}
			out, err := text.NewIndex(src).SubstringLines(text.ByteOffset(start), text.ByteOffset(length))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			writef(a.stdout, "%s", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "range start byte offset")
	cmd.Flags().IntVar(&length, "length", 0, "range length in bytes")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("length")
	return cmd
}

func (a *app) commentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment [path]",
		Short: "Print the normalized documentation comment found in a source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, src, err := a.readSingle(args)
			if err != nil {
				return err
			}
			body, ok := comment.Body(string(src))
			if !ok {
				a.logger.Info("no documentation comment", "path", path)
				return errIssues
			}
			writef(a.stdout, "%s\n", body)
			return nil
		},
	}
}

func (a *app) declCommand() *cobra.Command {
	var recordPath string
	cmd := &cobra.Command{
		Use:   "decl --record record.json [path]",
		Short: "Print the declaration header a SourceKit structure record describes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			//nolint:gosec // CLI intentionally reads user-provided file paths.
			data, err := os.ReadFile(recordPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", recordPath, err)
			}
			var rec decl.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("%s: %w", recordPath, err)
			}

			path, src, err := a.readSingle(args)
			if err != nil {
				return err
			}
			header, ok := decl.Parse(rec, text.NewIndex(src).WithPath(path))
			if !ok {
				a.logger.Info("no declaration", "path", path, "kind", rec.Kind.String(), "offset", rec.Offset)
				return errIssues
			}
			writef(a.stdout, "%s\n", header)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "JSON file holding one SourceKit structure record")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}
