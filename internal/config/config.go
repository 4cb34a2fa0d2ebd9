// Package config loads the swiftdoc YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/files"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
)

// DefaultBackend is the syntax map builder used when none is configured.
const DefaultBackend = "lexer"

// Config is the root YAML structure.
type Config struct {
	Documentable Documentable `yaml:"documentable"`
	Adjacency    Adjacency    `yaml:"adjacency"`
	Files        Files        `yaml:"files"`
	Backend      string       `yaml:"backend"`
}

// Documentable is the allow-list of tokens that may carry documentation.
// Kinds accept full SourceKit names or short names such as "identifier".
type Documentable struct {
	Kinds    []string `yaml:"kinds"`
	Keywords []string `yaml:"keywords"`
}

// Adjacency lists the tokens allowed between a doc comment and its token:
// tokens of SkipKinds and keywords spelled as in SkipKeywords.
type Adjacency struct {
	SkipKinds    []string `yaml:"skip_kinds"`
	SkipKeywords []string `yaml:"skip_keywords"`
}

// Files selects which files a directory walk yields.
type Files struct {
	Extensions []string `yaml:"extensions"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Documentable: Documentable{
			Kinds:    kindNames(docs.DefaultKinds),
			Keywords: append([]string(nil), docs.DefaultKeywords...),
		},
		Adjacency: Adjacency{
			SkipKinds:    kindNames(docs.DefaultSkipKinds),
			SkipKeywords: append([]string(nil), docs.DefaultSkipKeywords...),
		},
		Files: Files{
			Extensions: append([]string(nil), files.SwiftExtensions...),
		},
		Backend: DefaultBackend,
	}
}

// Load decodes a configuration. Sections missing from r keep their defaults,
// unknown fields are rejected, and an empty document yields Default().
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, err := Load(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting. Empty adjacency lists are valid
// and leave whitespace as the only separator a doc comment may have.
func (c Config) Validate() error {
	if len(c.Documentable.Kinds) == 0 && len(c.Documentable.Keywords) == 0 {
		return errors.New("documentable: kinds and keywords are both empty")
	}
	for _, k := range c.Documentable.Kinds {
		if strings.TrimSpace(k) == "" {
			return errors.New("documentable.kinds: empty kind")
		}
	}
	for _, w := range c.Documentable.Keywords {
		if strings.TrimSpace(w) == "" {
			return errors.New("documentable.keywords: empty keyword")
		}
	}
	for _, k := range c.Adjacency.SkipKinds {
		if strings.TrimSpace(k) == "" {
			return errors.New("adjacency.skip_kinds: empty kind")
		}
	}
	for _, w := range c.Adjacency.SkipKeywords {
		if strings.TrimSpace(w) == "" {
			return errors.New("adjacency.skip_keywords: empty keyword")
		}
	}
	if len(c.Files.Extensions) == 0 {
		return errors.New("files.extensions: empty list")
	}
	for _, ext := range c.Files.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("files.extensions: %q must start with '.'", ext)
		}
	}
	if c.Backend == "" {
		return errors.New("backend: empty name")
	}
	return nil
}

// Classifier builds the documentable classifier the configuration describes.
func (c Config) Classifier() *docs.Classifier {
	return docs.NewClassifier(
		parseKinds(c.Documentable.Kinds),
		c.Documentable.Keywords,
		parseKinds(c.Adjacency.SkipKinds),
		c.Adjacency.SkipKeywords,
	)
}

func kindNames(kinds []syntaxmap.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func parseKinds(names []string) []syntaxmap.Kind {
	out := make([]syntaxmap.Kind, 0, len(names))
	for _, name := range names {
		out = append(out, syntaxmap.ParseKind(strings.TrimSpace(name)))
	}
	return out
}
