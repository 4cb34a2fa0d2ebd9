//go:build cgo && swiftweaver_treesitter

package main

import _ "github.com/kpumuk/swift-weaver/internal/syntaxmap/treesitter"
