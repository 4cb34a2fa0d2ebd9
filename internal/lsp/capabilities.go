package lsp

// DefaultServerCapabilities returns the capability set the server implements.
func DefaultServerCapabilities() ServerCapabilities {
	return ServerCapabilities{
		TextDocumentSync: TextDocumentSyncOptions{
			OpenClose: true,
			Change:    TextDocumentSyncKindIncremental,
		},
		HoverProvider:          true,
		DocumentSymbolProvider: true,
		SemanticTokensProvider: &SemanticTokensOptions{
			Legend: SemanticTokensLegend{
				TokenTypes:     semanticTokenLegendTypes(),
				TokenModifiers: semanticTokenLegendModifiers(),
			},
			Full:  true,
			Range: false,
		},
	}
}
