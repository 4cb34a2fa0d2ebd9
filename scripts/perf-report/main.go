// Package main runs reproducible syntax map, doc extraction, and LSP memory stability measurements for Swift Weaver.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/files"
	_ "github.com/kpumuk/swift-weaver/internal/lexer"
	"github.com/kpumuk/swift-weaver/internal/lsp"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

const (
	setSmall   = "small"
	setTypical = "typical"
	setLarge   = "large"

	smallThreshold   = 4 * 1024
	largeThreshold   = 32 * 1024
	maxExternalSmall = 32
	maxExternalType  = 20
	maxExternalLarge = 10
)

var benchSets = []string{setSmall, setTypical, setLarge}

type config struct {
	externalSwiftRoot string
	backend           string
	iterations        int
	warmup            int
	jsonPath          string
	memIters          int
	memSampleEvery    int
	memFreeOSMemory   bool
}

type corpusFile struct {
	Path   string `json:"path"`
	Set    string `json:"set"`
	Source string `json:"source"`
	Bytes  int    `json:"bytes"`

	src []byte
}

type sampleStats struct {
	Samples int     `json:"samples"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	MinMS   float64 `json:"min_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanMS  float64 `json:"mean_ms"`
}

type benchSetReport struct {
	Set        string      `json:"set"`
	Files      int         `json:"files"`
	Iterations int         `json:"iterations"`
	Entries    int         `json:"entries,omitempty"`
	Stats      sampleStats `json:"stats"`
}

type memSample struct {
	Iteration int    `json:"iteration"`
	HeapAlloc uint64 `json:"heap_alloc"`
	HeapInuse uint64 `json:"heap_inuse"`
	HeapSys   uint64 `json:"heap_sys"`
	NumGC     uint32 `json:"num_gc"`
}

type memoryReport struct {
	Iterations          int         `json:"iterations"`
	SampleEvery         int         `json:"sample_every"`
	DocCount            int         `json:"doc_count"`
	Samples             []memSample `json:"samples"`
	HeapAllocGrowth     int64       `json:"heap_alloc_growth"`
	HeapInuseGrowth     int64       `json:"heap_inuse_growth"`
	UnboundedGrowthHint bool        `json:"unbounded_growth_hint"`
}

type report struct {
	GeneratedAt  time.Time               `json:"generated_at"`
	GoVersion    string                  `json:"go_version"`
	GOOS         string                  `json:"goos"`
	GOARCH       string                  `json:"goarch"`
	CPUs         int                     `json:"cpus"`
	Backend      string                  `json:"backend"`
	Corpus       map[string][]corpusFile `json:"corpus"`
	SyntaxBench  []benchSetReport        `json:"syntax_bench"`
	EntriesBench []benchSetReport        `json:"entries_bench"`
	Memory       memoryReport            `json:"memory"`
	Warnings     []string                `json:"warnings,omitempty"`
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perf-report: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.externalSwiftRoot, "external-swift-root", "", "optional path to a Swift project used as additional corpus")
	flag.StringVar(&cfg.backend, "backend", "lexer", "syntax map backend to measure")
	flag.IntVar(&cfg.iterations, "iterations", 15, "benchmark iterations per file")
	flag.IntVar(&cfg.warmup, "warmup", 2, "warmup iterations per file")
	flag.StringVar(&cfg.jsonPath, "json", "", "optional JSON report output path")
	flag.IntVar(&cfg.memIters, "memory-iterations", 300, "LSP open/change/close loop iterations")
	flag.IntVar(&cfg.memSampleEvery, "memory-sample-every", 25, "memory sample cadence")
	flag.BoolVar(&cfg.memFreeOSMemory, "memory-free-os", false, "call debug.FreeOSMemory before memory samples (slower, less noisy)")
	flag.Parse()
	return cfg
}

func run(cfg config) error {
	if cfg.iterations <= 0 {
		return errors.New("iterations must be > 0")
	}
	if cfg.warmup < 0 {
		return errors.New("warmup must be >= 0")
	}
	if cfg.memIters <= 0 {
		return errors.New("memory-iterations must be > 0")
	}
	if cfg.memSampleEvery <= 0 {
		return errors.New("memory-sample-every must be > 0")
	}

	ctx := context.Background()
	builder, err := syntaxmap.Lookup(cfg.backend)
	if err != nil {
		return err
	}
	corpus, warnings, err := buildCorpus(ctx, cfg.externalSwiftRoot)
	if err != nil {
		return err
	}

	syntaxBench, entriesBench, err := runBench(ctx, builder, corpus, cfg)
	if err != nil {
		return err
	}
	memBench, err := runLSPMemoryLoop(ctx, builder, corpus, cfg)
	if err != nil {
		return err
	}

	rep := report{
		GeneratedAt:  time.Now().UTC(),
		GoVersion:    runtime.Version(),
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		Backend:      builder.Name(),
		Corpus:       corpus,
		SyntaxBench:  syntaxBench,
		EntriesBench: entriesBench,
		Memory:       memBench,
		Warnings:     warnings,
	}

	printReport(rep)
	if cfg.jsonPath != "" {
		if err := writeJSON(cfg.jsonPath, rep); err != nil {
			return err
		}
		fmt.Printf("\nJSON report written to %s\n", cfg.jsonPath)
	}
	return nil
}

func buildCorpus(ctx context.Context, externalRoot string) (map[string][]corpusFile, []string, error) {
	repoRoot, err := findRepoRoot()
	if err != nil {
		return nil, nil, err
	}
	corpus := map[string][]corpusFile{setSmall: {}, setTypical: {}, setLarge: {}}
	var warnings []string

	add := func(source, path string, src []byte) {
		set := sizeSet(len(src))
		corpus[set] = append(corpus[set], corpusFile{Path: path, Set: set, Source: source, Bytes: len(src), src: src})
	}

	var fixtures [][]byte
	for _, dir := range []string{"testdata/corpus/valid", "testdata/docs/input"} {
		paths, err := files.Walk(ctx, filepath.Join(repoRoot, dir), files.SwiftExtensions)
		if err != nil {
			return nil, nil, fmt.Errorf("repo fixtures %s: %w", dir, err)
		}
		for _, path := range paths {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("read %s: %w", path, err)
			}
			fixtures = append(fixtures, src)
			add("repo-fixture", path, src)
		}
	}
	if len(fixtures) == 0 {
		return nil, nil, errors.New("no repo fixtures found")
	}

	// Repo fixtures are small; concatenations keep every bucket populated.
	add("synthetic", "synthetic/typical.swift", repeatFixtures(fixtures, smallThreshold))
	add("synthetic", "synthetic/large.swift", repeatFixtures(fixtures, largeThreshold))

	if strings.TrimSpace(externalRoot) == "" {
		warnings = append(warnings, "external Swift corpus not provided; typical and large sets use synthetic concatenations")
		sortCorpus(corpus)
		return corpus, warnings, nil
	}

	paths, err := files.Walk(ctx, externalRoot, files.SwiftExtensions)
	if err != nil {
		return nil, nil, fmt.Errorf("external-swift-root: %w", err)
	}
	limits := map[string]int{setSmall: maxExternalSmall, setTypical: maxExternalType, setLarge: maxExternalLarge}
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		set := sizeSet(len(src))
		if countSource(corpus[set], "external-swift") >= limits[set] {
			continue
		}
		add("external-swift", path, src)
	}
	sortCorpus(corpus)
	return corpus, warnings, nil
}

func sizeSet(n int) string {
	switch {
	case n >= largeThreshold:
		return setLarge
	case n >= smallThreshold:
		return setTypical
	default:
		return setSmall
	}
}

func repeatFixtures(fixtures [][]byte, minBytes int) []byte {
	var b bytes.Buffer
	for b.Len() < minBytes {
		for _, src := range fixtures {
			b.Write(src)
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

func countSource(set []corpusFile, source string) int {
	n := 0
	for _, f := range set {
		if f.Source == source {
			n++
		}
	}
	return n
}

func sortCorpus(corpus map[string][]corpusFile) {
	for k := range corpus {
		slices.SortFunc(corpus[k], func(a, b corpusFile) int { return strings.Compare(a.Path, b.Path) })
	}
}

func runBench(ctx context.Context, builder syntaxmap.Builder, corpus map[string][]corpusFile, cfg config) ([]benchSetReport, []benchSetReport, error) {
	classifier := docs.DefaultClassifier()
	syntaxOut := make([]benchSetReport, 0, len(benchSets))
	entriesOut := make([]benchSetReport, 0, len(benchSets))
	for _, set := range benchSets {
		var buildSamples, entrySamples []time.Duration
		entries := 0
		for _, f := range corpus[set] {
			for range cfg.warmup {
				if _, err := builder.Build(ctx, f.src); err != nil {
					return nil, nil, fmt.Errorf("warmup build %s: %w", f.Path, err)
				}
			}
			var m syntaxmap.Map
			for range cfg.iterations {
				start := time.Now()
				built, err := builder.Build(ctx, f.src)
				if err != nil {
					return nil, nil, fmt.Errorf("build %s: %w", f.Path, err)
				}
				buildSamples = append(buildSamples, time.Since(start))
				m = built
			}

			idx := text.NewIndex(f.src).WithPath(f.Path)
			for range cfg.iterations {
				start := time.Now()
				found := classifier.Entries(idx, m.Tokens)
				entrySamples = append(entrySamples, time.Since(start))
				entries = len(found)
			}
		}
		syntaxOut = append(syntaxOut, benchSetReport{
			Set:        set,
			Files:      len(corpus[set]),
			Iterations: cfg.iterations,
			Stats:      durationStats(buildSamples),
		})
		entriesOut = append(entriesOut, benchSetReport{
			Set:        set,
			Files:      len(corpus[set]),
			Iterations: cfg.iterations,
			Entries:    entries,
			Stats:      durationStats(entrySamples),
		})
	}
	return syntaxOut, entriesOut, nil
}

func runLSPMemoryLoop(ctx context.Context, builder syntaxmap.Builder, corpus map[string][]corpusFile, cfg config) (memoryReport, error) {
	type memDoc struct {
		uri    string
		open   []byte
		change []byte
	}
	var memDocs []memDoc
	for _, set := range []string{setLarge, setTypical, setSmall} {
		for i, f := range corpus[set] {
			if i >= 2 {
				break
			}
			memDocs = append(memDocs, memDoc{
				uri:    fmt.Sprintf("file:///perf/memory/%s/%d/%s", set, i, filepath.Base(f.Path)),
				open:   f.src,
				change: mutateForMemoryLoop(f.src),
			})
		}
	}
	if len(memDocs) == 0 {
		return memoryReport{}, errors.New("no memory benchmark documents available")
	}

	store := lsp.NewSnapshotStore(lsp.Analyzer{Builder: builder})
	samples := make([]memSample, 0, max(1, cfg.memIters/cfg.memSampleEvery))
	recordSample := func(iter int) {
		if cfg.memFreeOSMemory {
			debug.FreeOSMemory()
		} else {
			runtime.GC()
		}
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		samples = append(samples, memSample{
			Iteration: iter,
			HeapAlloc: ms.HeapAlloc,
			HeapInuse: ms.HeapInuse,
			HeapSys:   ms.HeapSys,
			NumGC:     ms.NumGC,
		})
	}

	recordSample(0)
	for iter := 1; iter <= cfg.memIters; iter++ {
		for _, d := range memDocs {
			if _, err := store.Open(ctx, d.uri, 1, d.open); err != nil {
				return memoryReport{}, fmt.Errorf("memory loop open: %w", err)
			}
			if _, err := store.Change(ctx, d.uri, 2, []lsp.TextDocumentContentChangeEvent{{Text: string(d.change)}}); err != nil {
				return memoryReport{}, fmt.Errorf("memory loop change: %w", err)
			}
			if _, err := store.Change(ctx, d.uri, 3, []lsp.TextDocumentContentChangeEvent{{Text: string(d.open)}}); err != nil {
				return memoryReport{}, fmt.Errorf("memory loop revert: %w", err)
			}
			store.Close(d.uri)
		}
		if iter%cfg.memSampleEvery == 0 || iter == cfg.memIters {
			recordSample(iter)
		}
	}

	rep := memoryReport{
		Iterations:  cfg.memIters,
		SampleEvery: cfg.memSampleEvery,
		DocCount:    len(memDocs),
		Samples:     samples,
	}
	if len(samples) >= 2 {
		first := samples[0]
		last := samples[len(samples)-1]
		rep.HeapAllocGrowth = int64Diff(last.HeapAlloc, first.HeapAlloc)
		rep.HeapInuseGrowth = int64Diff(last.HeapInuse, first.HeapInuse)
		rep.UnboundedGrowthHint = isUnboundedGrowthHint(samples)
	}
	return rep, nil
}

// mutateForMemoryLoop toggles a trailing documented declaration so every
// change adds or removes one doc entry.
func mutateForMemoryLoop(src []byte) []byte {
	const marker = "\n/// perf-memory-toggle\nlet perfMemoryToggle = 0\n"
	s := string(src)
	if strings.Contains(s, marker) {
		return []byte(strings.ReplaceAll(s, marker, "\n"))
	}
	return []byte(strings.TrimRight(s, "\n") + marker)
}

func isUnboundedGrowthHint(samples []memSample) bool {
	if len(samples) < 4 {
		return false
	}
	base := samples[0]
	last := samples[len(samples)-1]
	growthAlloc := int64Diff(last.HeapAlloc, base.HeapAlloc)
	growthInuse := int64Diff(last.HeapInuse, base.HeapInuse)
	const maxExpectedGrowth = 16 << 20 // 16 MiB after forced GC samples
	return growthAlloc > maxExpectedGrowth || growthInuse > maxExpectedGrowth
}

func durationStats(samples []time.Duration) sampleStats {
	if len(samples) == 0 {
		return sampleStats{}
	}
	ns := make([]int64, len(samples))
	var sum int64
	for i, d := range samples {
		ns[i] = d.Nanoseconds()
		sum += ns[i]
	}
	slices.Sort(ns)
	return sampleStats{
		Samples: len(samples),
		P50MS:   nanosToMS(quantile(ns, 0.50)),
		P95MS:   nanosToMS(quantile(ns, 0.95)),
		MinMS:   nanosToMS(ns[0]),
		MaxMS:   nanosToMS(ns[len(ns)-1]),
		MeanMS:  nanosToMS(sum / int64(len(ns))),
	}
}

func quantile(sorted []int64, q float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*q)]
}

func nanosToMS(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}

func printReport(rep report) {
	fmt.Printf("Swift Weaver Performance Report\n")
	fmt.Printf("Generated: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Go: %s | %s/%s | CPUs=%d | backend=%s\n", rep.GoVersion, rep.GOOS, rep.GOARCH, rep.CPUs, rep.Backend)
	fmt.Println()
	fmt.Println("Corpus sets")
	for _, set := range benchSets {
		totalBytes := 0
		for _, f := range rep.Corpus[set] {
			totalBytes += f.Bytes
		}
		fmt.Printf("- %-9s files=%3d total=%7d bytes\n", set, len(rep.Corpus[set]), totalBytes)
	}
	if len(rep.Warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings")
		for _, w := range rep.Warnings {
			fmt.Printf("- %s\n", w)
		}
	}
	fmt.Println()
	printBenchTable("Syntax map build (warm)", rep.SyntaxBench)
	fmt.Println()
	printBenchTable("Doc entries (syntax map prebuilt)", rep.EntriesBench)
	fmt.Println()
	printMemoryReport(rep.Memory)
}

func printBenchTable(title string, rows []benchSetReport) {
	fmt.Println(title)
	fmt.Println("set        files samples  p50(ms)  p95(ms)  mean(ms)   min    max  entries")
	for _, r := range rows {
		fmt.Printf("%-10s %5d %7d %8.2f %8.2f %8.2f %6.2f %6.2f %8d\n",
			r.Set, r.Files, r.Stats.Samples, r.Stats.P50MS, r.Stats.P95MS, r.Stats.MeanMS, r.Stats.MinMS, r.Stats.MaxMS, r.Entries)
	}
}

func printMemoryReport(rep memoryReport) {
	fmt.Println("LSP memory loop (open/change/close)")
	fmt.Printf("iterations=%d sample_every=%d docs=%d\n", rep.Iterations, rep.SampleEvery, rep.DocCount)
	if len(rep.Samples) == 0 {
		fmt.Println("no samples")
		return
	}
	last := rep.Samples[len(rep.Samples)-1]
	fmt.Printf("final heap_alloc=%d heap_inuse=%d heap_sys=%d num_gc=%d\n", last.HeapAlloc, last.HeapInuse, last.HeapSys, last.NumGC)
	fmt.Printf("growth heap_alloc=%d heap_inuse=%d unbounded_growth_hint=%v\n", rep.HeapAllocGrowth, rep.HeapInuseGrowth, rep.UnboundedGrowthHint)
}

func writeJSON(path string, rep report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o600)
}

func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("repository root not found")
		}
		dir = parent
	}
}

func int64Diff(a, b uint64) int64 {
	const maxInt64AsUint64 = (^uint64(0)) >> 1
	if a >= b {
		d := a - b
		if d > maxInt64AsUint64 {
			return int64(maxInt64AsUint64)
		}
		return int64(d)
	}
	d := b - a
	if d > maxInt64AsUint64 {
		return -int64(maxInt64AsUint64)
	}
	return -int64(d)
}
