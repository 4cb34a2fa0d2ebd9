// Package files classifies source file names and enumerates source trees.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Extension allow-lists. Matching is case-sensitive and the extension must end the name.
var (
	SwiftExtensions      = []string{".swift"}
	ObjCHeaderExtensions = []string{".h", ".hpp", ".hh"}
)

// IsSwiftFile reports whether name has a Swift source extension.
func IsSwiftFile(name string) bool {
	return HasExtension(name, SwiftExtensions)
}

// IsObjCHeaderFile reports whether name has an Objective-C header extension.
func IsObjCHeaderFile(name string) bool {
	return HasExtension(name, ObjCHeaderExtensions)
}

// HasExtension reports whether the base name of name ends in one of exts and
// has a non-empty stem.
func HasExtension(name string, exts []string) bool {
	base := filepath.Base(name)
	for _, ext := range exts {
		if len(base) > len(ext) && strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// AbsolutePath resolves path against base, or the working directory when base
// is empty, and cleans the result. A leading "~/" expands to the home directory.
func AbsolutePath(path, base string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", path, err)
		}
		base = wd
	}
	return filepath.Join(base, path), nil
}

// Walk returns the sorted paths of files under root whose names match exts.
//
// Hidden files and directories are skipped, as are paths matched by the
// .gitignore at root. A root naming a file is returned as is when it matches.
func Walk(ctx context.Context, root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if HasExtension(root, exts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, err = gitignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", gitignorePath, err)
		}
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ignored := isHidden(d.Name()) || (ignore != nil && ignore.MatchesPath(filepath.ToSlash(rel)))
		if d.IsDir() {
			if ignored {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored || !d.Type().IsRegular() || !HasExtension(path, exts) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
