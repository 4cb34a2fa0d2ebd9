// Package treesitter registers a syntax map builder backed by the tree-sitter
// Swift grammar. It is compiled only with cgo and the swiftweaver_treesitter
// build tag; importing it for its side effect makes the "treesitter" backend
// available through syntaxmap.Lookup.
package treesitter
