// Package mcptools exposes Swift documentation extraction as Model Context
// Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kpumuk/swift-weaver/internal/comment"
	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/files"
	"github.com/kpumuk/swift-weaver/internal/lexer"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// ServerName is reported to MCP clients.
const ServerName = "swiftdoc"

// Config holds the analysis settings shared by all tools.
type Config struct {
	Builder    syntaxmap.Builder
	Classifier *docs.Classifier
	// Extensions selects the files a directory path expands to.
	Extensions []string
}

func (c Config) withDefaults() Config {
	if c.Builder == nil {
		c.Builder = lexer.Builder{}
	}
	if c.Classifier == nil {
		c.Classifier = docs.DefaultClassifier()
	}
	if len(c.Extensions) == 0 {
		c.Extensions = files.SwiftExtensions
	}
	return c
}

// NewServer creates an MCP server with every documentation tool registered.
func NewServer(cfg Config, version string) *mcp.Server {
	cfg = cfg.withDefaults()
	s := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	mcp.AddTool(s, DocumentedOffsetsTool(), DocumentedOffsetsHandler(cfg))
	mcp.AddTool(s, DocEntriesTool(), DocEntriesHandler(cfg))
	mcp.AddTool(s, CommentBodyTool(), CommentBodyHandler())
	return s
}

// DocumentedOffsetsInput is the input schema for the documented_offsets tool.
type DocumentedOffsetsInput struct {
	Path string `json:"path" jsonschema_description:"Swift file or directory to scan. Directories are walked honoring .gitignore."`
}

// DocumentedOffsetsTool creates the documented_offsets MCP tool.
func DocumentedOffsetsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "documented_offsets",
		Description: "List the byte offsets of every documented declaration name in Swift sources, one 'path:offset' per line.",
	}
}

// DocumentedOffsetsHandler handles the documented_offsets tool invocation.
func DocumentedOffsetsHandler(cfg Config) func(context.Context, *mcp.CallToolRequest, DocumentedOffsetsInput) (*mcp.CallToolResult, any, error) {
	cfg = cfg.withDefaults()
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocumentedOffsetsInput) (*mcp.CallToolResult, any, error) {
		if input.Path == "" {
			return nil, nil, errors.New("path is required")
		}
		paths, err := files.Walk(ctx, input.Path, cfg.Extensions)
		if err != nil {
			return nil, nil, err
		}
		var b strings.Builder
		for _, path := range paths {
			idx, tokens, err := analyzeFile(ctx, cfg, path)
			if err != nil {
				return nil, nil, err
			}
			for _, off := range cfg.Classifier.DocumentedTokenOffsets(idx, tokens) {
				fmt.Fprintf(&b, "%s:%d\n", path, off)
			}
		}
		out := b.String()
		if out == "" {
			out = "No documented declarations found."
		}
		return textResult(out), nil, nil
	}
}

// DocEntriesInput is the input schema for the doc_entries tool.
type DocEntriesInput struct {
	File string `json:"file" jsonschema_description:"Swift source file to document."`
}

// DocEntriesTool creates the doc_entries MCP tool.
func DocEntriesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "doc_entries",
		Description: "Return the documented declarations of one Swift file as JSON: name, offsets, line range, declaration header and doc comment text.",
	}
}

// DocEntriesHandler handles the doc_entries tool invocation.
func DocEntriesHandler(cfg Config) func(context.Context, *mcp.CallToolRequest, DocEntriesInput) (*mcp.CallToolResult, any, error) {
	cfg = cfg.withDefaults()
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocEntriesInput) (*mcp.CallToolResult, any, error) {
		if input.File == "" {
			return nil, nil, errors.New("file is required")
		}
		idx, tokens, err := analyzeFile(ctx, cfg, input.File)
		if err != nil {
			return nil, nil, err
		}
		entries := cfg.Classifier.Entries(idx, tokens)
		if entries == nil {
			entries = []docs.Entry{}
		}
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, nil, err
		}
		return textResult(string(b)), nil, nil
	}
}

// CommentBodyInput is the input schema for the comment_body tool.
type CommentBodyInput struct {
	Text string `json:"text" jsonschema_description:"Swift source text containing a /// or /** */ documentation comment."`
}

// CommentBodyTool creates the comment_body MCP tool.
func CommentBodyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "comment_body",
		Description: "Strip the markers and common indentation from the first Swift documentation comment in the given text.",
	}
}

// CommentBodyHandler handles the comment_body tool invocation.
func CommentBodyHandler() func(context.Context, *mcp.CallToolRequest, CommentBodyInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, input CommentBodyInput) (*mcp.CallToolResult, any, error) {
		body, ok := comment.Body(input.Text)
		if !ok {
			res := textResult("no documentation comment found")
			res.IsError = true
			return res, nil, nil
		}
		return textResult(body), nil, nil
	}
}

func analyzeFile(ctx context.Context, cfg Config, path string) (*text.Index, []syntaxmap.Token, error) {
	//nolint:gosec // tools read client-provided paths.
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := cfg.Builder.Build(ctx, src)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: build syntax map: %w", path, err)
	}
	return text.NewIndex(src).WithPath(path), m.Tokens, nil
}

func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: s}},
	}
}
