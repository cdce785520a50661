package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/enveil/enveil/internal/cache"
	"github.com/enveil/enveil/internal/detect"
	"github.com/enveil/enveil/internal/git"
	"github.com/enveil/enveil/internal/ignore"
	"github.com/enveil/enveil/internal/rules"
	"github.com/enveil/enveil/internal/types"
)

// Config controls scanning behavior including scope, performance, and filters.
type Config struct {
	Root             string
	IncludeGlobs     string
	ExcludeGlobs     string
	MaxBytes         int64
	ScanStaged       bool
	HistoryCommits   int
	BaseBranch       string
	Threads          int
	EnableRules      string
	DisableRules     string
	MinConfidence    float64
	EntropyThreshold float64
	MinTokenLength   int
	NoEntropy        bool
	DryRun           bool
	NoColor          bool
	DefaultExcludes  bool
	NoCache          bool
	Progress         func()
}

func (cfg Config) detectOptions() detect.Options {
	opts := detect.Options{
		MinConfidence:    cfg.MinConfidence,
		EntropyThreshold: cfg.EntropyThreshold,
		MinTokenLength:   cfg.MinTokenLength,
	}
	if cfg.NoEntropy {
		// an unreachable threshold disables the sweep without a separate code path
		opts.EntropyThreshold = 1.1
	}
	return opts
}

type pendingScan struct {
	path     string
	data     []byte
	cacheKey string
	cacheVal string
}

func determineBatchSize(threads int) int {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads < 2 {
		threads = 2
	}
	if threads > 32 {
		threads = 32
	}
	return threads * 4
}

// processChunk scans a chunk of files across cfg.Threads workers. Findings
// are emitted in job order so output stays deterministic regardless of
// scheduling.
func processChunk(cfg Config, chunk []pendingScan, emit func([]types.Finding), updated map[string]string, res *Result) {
	if len(chunk) == 0 {
		return
	}

	if !cfg.DryRun {
		workers := cfg.Threads
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		if workers > len(chunk) {
			workers = len(chunk)
		}
		opts := cfg.detectOptions()
		perJob := make([][]types.Finding, len(chunk))
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					perJob[i] = detect.ScanWithOptions(chunk[i].data, chunk[i].path, opts)
				}
			}()
		}
		for i := range chunk {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		for i := range chunk {
			fs := filterByIDs(perJob[i], cfg.EnableRules, cfg.DisableRules)
			fs = boostSensitive(fs)
			emit(fs)
		}
	}

	for _, job := range chunk {
		res.FilesScanned++
		if cfg.Progress != nil {
			cfg.Progress()
		}
		if !cfg.NoCache && !cfg.DryRun && job.cacheKey != "" && job.cacheVal != "" {
			updated[job.cacheKey] = job.cacheVal
		}
	}
}

// RuleIDs returns the list of available detection rule IDs for UI purposes.
func RuleIDs() []string {
	return rules.IDs()
}

// Scan runs a scan and returns only findings (without stats).
func Scan(cfg Config) ([]types.Finding, error) {
	res, err := ScanWithStats(cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// Result contains findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	Duration     time.Duration
	Warnings     []string
}

// ScanWithStats runs a scan and returns findings along with timing and counts.
func ScanWithStats(cfg Config) (Result, error) {
	var result Result

	var db cache.DB
	if !cfg.NoCache {
		db, _ = cache.Load(cfg.Root)
	} else {
		db.Entries = map[string]string{}
	}
	updated := map[string]string{}

	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}

	ign, err := ignore.LoadRoot(cfg.Root)
	if err != nil {
		return result, fmt.Errorf("load ignore file: %w", err)
	}
	ctx := context.Background()

	var out []types.Finding
	started := time.Now()
	emit := func(fs []types.Finding) {
		out = append(out, fs...)
	}

	if cfg.HistoryCommits == 0 && cfg.BaseBranch == "" && !cfg.ScanStaged {
		if err := scanFilesystem(ctx, cfg, ign, db, emit, updated, &result); err != nil {
			return result, err
		}
	}

	if cfg.ScanStaged {
		if err := scanStaged(cfg, ign, emit, updated, &result); err != nil {
			return result, err
		}
	}

	if cfg.HistoryCommits > 0 {
		if err := scanHistory(cfg, ign, emit, updated, &result); err != nil {
			return result, err
		}
	}

	if cfg.BaseBranch != "" {
		if err := scanDiff(cfg, ign, emit, updated, &result); err != nil {
			return result, err
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Start < out[j].Start
	})
	result.Findings = out
	result.Duration = time.Since(started)
	if !cfg.NoCache && len(updated) > 0 {
		if db.Entries == nil {
			db.Entries = map[string]string{}
		}
		for k, v := range updated {
			db.Entries[k] = v
		}
		_ = cache.Save(cfg.Root, db)
	}
	return result, nil
}

func scanFilesystem(ctx context.Context, cfg Config, ign *ignore.Matcher, db cache.DB, emit func([]types.Finding), updated map[string]string, result *Result) error {
	batchSize := determineBatchSize(cfg.Threads)
	queue := make([]pendingScan, 0, batchSize)

	err := Walk(ctx, cfg, ign, result, func(p string, data []byte) {
		h := fastHash(data)
		if !cfg.NoCache && db.Entries != nil && db.Entries[p] == h {
			return
		}
		queue = append(queue, pendingScan{path: p, data: data, cacheKey: p, cacheVal: h})
		if len(queue) >= batchSize {
			processChunk(cfg, queue, emit, updated, result)
			queue = queue[:0]
		}
	})
	if err != nil {
		return err
	}
	processChunk(cfg, queue, emit, updated, result)
	return nil
}

func scanStaged(cfg Config, ign *ignore.Matcher, emit func([]types.Finding), updated map[string]string, result *Result) error {
	files, data, err := git.Staged(cfg.Root)
	if err != nil {
		return err
	}
	jobs := make([]pendingScan, 0, len(files))
	for i, p := range files {
		if !allowedByGlobs(p, cfg) {
			continue
		}
		if ign.Match(p) {
			continue
		}
		if cfg.MaxBytes > 0 && int64(len(data[i])) > cfg.MaxBytes {
			continue
		}
		if detect.LooksBinary(data[i]) {
			continue
		}
		jobs = append(jobs, pendingScan{path: p, data: data[i], cacheKey: p, cacheVal: fastHash(data[i])})
	}
	runChunked(cfg, jobs, emit, updated, result)
	return nil
}

func scanHistory(cfg Config, ign *ignore.Matcher, emit func([]types.Finding), updated map[string]string, result *Result) error {
	entries, err := git.LastNCommits(cfg.Root, cfg.HistoryCommits)
	if err != nil {
		return err
	}
	var jobs []pendingScan
	for _, e := range entries {
		for path, blob := range e.Files {
			if !allowedByGlobs(path, cfg) {
				continue
			}
			if ign.Match(path) {
				continue
			}
			if cfg.MaxBytes > 0 && int64(len(blob)) > cfg.MaxBytes {
				continue
			}
			if detect.LooksBinary(blob) {
				continue
			}
			jobs = append(jobs, pendingScan{path: path, data: blob, cacheKey: path, cacheVal: fastHash(blob)})
		}
	}
	runChunked(cfg, jobs, emit, updated, result)
	return nil
}

func scanDiff(cfg Config, ign *ignore.Matcher, emit func([]types.Finding), updated map[string]string, result *Result) error {
	files, data, err := git.DiffAgainst(cfg.Root, cfg.BaseBranch)
	if err != nil {
		return err
	}
	jobs := make([]pendingScan, 0, len(files))
	for i, p := range files {
		if len(data[i]) == 0 {
			continue
		}
		if !allowedByGlobs(p, cfg) {
			continue
		}
		if ign.Match(p) {
			continue
		}
		if cfg.MaxBytes > 0 && int64(len(data[i])) > cfg.MaxBytes {
			continue
		}
		jobs = append(jobs, pendingScan{path: p, data: data[i], cacheKey: p, cacheVal: fastHash(data[i])})
	}
	runChunked(cfg, jobs, emit, updated, result)
	return nil
}

func runChunked(cfg Config, jobs []pendingScan, emit func([]types.Finding), updated map[string]string, result *Result) {
	batchSize := determineBatchSize(cfg.Threads)
	for len(jobs) > 0 {
		end := batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		processChunk(cfg, jobs[:end], emit, updated, result)
		jobs = jobs[end:]
	}
}

func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}

func filterByIDs(fs []types.Finding, enable, disable string) []types.Finding {
	if enable == "" && disable == "" {
		return fs
	}
	allowed := map[string]bool{}
	if enable != "" {
		for _, id := range strings.Split(enable, ",") {
			allowed[strings.TrimSpace(id)] = true
		}
	}
	blocked := map[string]bool{}
	if disable != "" {
		for _, id := range strings.Split(disable, ",") {
			blocked[strings.TrimSpace(id)] = true
		}
	}
	var out []types.Finding
	for _, f := range fs {
		if enable != "" && !allowed[f.Rule] {
			continue
		}
		if disable != "" && blocked[f.Rule] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// boostSensitive nudges confidence up for findings in files whose name
// alone suggests credentials (.env variants, key material, cloud CLI
// configs). The bump is proportional so already-confident findings are
// unaffected in practice.
func boostSensitive(fs []types.Finding) []types.Finding {
	for i, f := range fs {
		if !isSensitivePath(f.Path) {
			continue
		}
		fs[i].Confidence = f.Confidence + (1-f.Confidence)*0.2
		if fs[i].Severity == types.SevLow {
			fs[i].Severity = types.SevMed
		}
	}
	return fs
}

// allowedByGlobs returns true if the given path is allowed by the include/exclude
// glob configuration. Include globs are comma-separated and, if provided, act as
// a positive filter. Exclude globs are subtracted last. Matching uses forward-slash
// semantics.
func allowedByGlobs(relPath string, cfg Config) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	includes := parseGlobsList(cfg.IncludeGlobs)
	excludes := parseGlobsList(cfg.ExcludeGlobs)
	if len(includes) > 0 {
		matched := matchAnyGlob(rp, includes)
		if !matched {
			return false
		}
	}
	if len(excludes) > 0 && matchAnyGlob(rp, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
			out = append(out, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
