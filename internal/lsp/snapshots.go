package lsp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/lexer"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	itext "github.com/kpumuk/swift-weaver/internal/text"
)

// Analyzer turns document text into syntax tokens and documentation entries.
type Analyzer struct {
	Builder    syntaxmap.Builder
	Classifier *docs.Classifier
}

// DefaultAnalyzer uses the lexer backend and the default classifier.
func DefaultAnalyzer() Analyzer {
	return Analyzer{Builder: lexer.Builder{}, Classifier: docs.DefaultClassifier()}
}

// Snapshot is an immutable analyzed document state.
type Snapshot struct {
	URI     string
	Version int32
	Index   *itext.Index
	Tokens  []syntaxmap.Token
	Entries []docs.Entry
}

// Bytes returns a copy of the snapshot source bytes.
func (s *Snapshot) Bytes() []byte {
	if s == nil || s.Index == nil {
		return nil
	}
	return []byte(s.Index.Source())
}

// SnapshotStore stores versioned analyzed documents.
type SnapshotStore struct {
	analyzer Analyzer

	mu   sync.RWMutex
	docs map[string]*Snapshot
}

// NewSnapshotStore creates an empty snapshot store. Zero fields of a fall back
// to DefaultAnalyzer.
func NewSnapshotStore(a Analyzer) *SnapshotStore {
	def := DefaultAnalyzer()
	if a.Builder == nil {
		a.Builder = def.Builder
	}
	if a.Classifier == nil {
		a.Classifier = def.Classifier
	}
	return &SnapshotStore{analyzer: a, docs: make(map[string]*Snapshot)}
}

// Open analyzes and stores a document snapshot.
func (s *SnapshotStore) Open(ctx context.Context, uri string, version int32, src []byte) (*Snapshot, error) {
	if s == nil {
		return nil, errors.New("nil SnapshotStore")
	}
	snap, err := s.analyze(ctx, uri, version, src)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[uri] = snap
	s.mu.Unlock()
	return snap, nil
}

// Change applies incremental LSP changes, reanalyzes, and replaces the snapshot.
func (s *SnapshotStore) Change(ctx context.Context, uri string, version int32, changes []TextDocumentContentChangeEvent) (*Snapshot, error) {
	if s == nil {
		return nil, errors.New("nil SnapshotStore")
	}
	s.mu.RLock()
	cur, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDocumentNotOpen
	}
	if version <= cur.Version {
		return nil, ErrStaleVersion
	}

	nextSrc, err := applyContentChanges(cur.Bytes(), changes)
	if err != nil {
		return nil, err
	}
	next, err := s.analyze(ctx, uri, version, nextSrc)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[uri] = next
	s.mu.Unlock()
	return next, nil
}

// Close removes a tracked document snapshot.
func (s *SnapshotStore) Close(uri string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Snapshot returns the current snapshot for uri.
func (s *SnapshotStore) Snapshot(uri string) (*Snapshot, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.docs[uri]
	return snap, ok
}

func (s *SnapshotStore) analyze(ctx context.Context, uri string, version int32, src []byte) (*Snapshot, error) {
	m, err := s.analyzer.Builder.Build(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("build syntax map: %w", err)
	}
	idx := itext.NewIndex(src).WithPath(uri)
	return &Snapshot{
		URI:     uri,
		Version: version,
		Index:   idx,
		Tokens:  m.Tokens,
		Entries: s.analyzer.Classifier.Entries(idx, m.Tokens),
	}, nil
}

func applyContentChanges(src []byte, changes []TextDocumentContentChangeEvent) ([]byte, error) {
	cur := slices.Clone(src)
	for _, ch := range changes {
		if ch.Range == nil {
			cur = []byte(ch.Text)
			continue
		}
		idx := itext.NewIndex(cur)
		start, err := idx.UTF16PositionToOffset(itext.UTF16Position{Line: ch.Range.Start.Line, Character: ch.Range.Start.Character})
		if err != nil {
			return nil, fmt.Errorf("change range start: %w", err)
		}
		end, err := idx.UTF16PositionToOffset(itext.UTF16Position{Line: ch.Range.End.Line, Character: ch.Range.End.Character})
		if err != nil {
			return nil, fmt.Errorf("change range end: %w", err)
		}
		if end < start {
			return nil, errors.New("change range end before start")
		}
		cur = slices.Concat(cur[:start], []byte(ch.Text), cur[end:])
	}
	return cur, nil
}
