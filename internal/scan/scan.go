// Package scan statically analyzes a source tree for ML training code and
// projects its compute cost, energy, and carbon footprint.
package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Default file selection, overridable per run or via the repo policy file.
var (
	DefaultInclude = []string{"**/*.py"}
	DefaultExclude = []string{"**/test_*.py", "**/*_test.py"}
)

// skipDirs are directory names never worth descending into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	"vendor":       true,
}

// ProgressFunc is called as files finish analysis.
// done is the number analyzed so far, total the number discovered.
type ProgressFunc func(done, total int)

// Options controls a scan run.
type Options struct {
	Root     string
	Include  []string // glob patterns, ** spans directories; empty = DefaultInclude
	Exclude  []string // empty = DefaultExclude
	Progress ProgressFunc
}

// Result holds the per-file analyses and their tallies.
type Result struct {
	Root  string
	Files []FileAnalysis // sorted by path

	FilesScanned    int
	ReadErrors      int
	MLFiles         int
	TrainingFiles   int
	TotalComplexity int
}

// Run discovers matching files under the root and analyzes them with a
// bounded worker pool.
func Run(opts Options) (*Result, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", opts.Root)
	}

	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude := opts.Exclude
	if len(exclude) == 0 {
		exclude = DefaultExclude
	}

	files, err := discover(opts.Root, include, exclude)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.Root, err)
	}

	res := &Result{Root: opts.Root, FilesScanned: len(files)}
	if len(files) == 0 {
		return res, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > 8 {
		numWorkers = 8
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	analyses := make([]FileAnalysis, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				analyses[idx] = AnalyzeFile(files[idx])
				n := processed.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	res.Files = analyses
	for _, fa := range analyses {
		if fa.Err != nil {
			res.ReadErrors++
			continue
		}
		if fa.IsML {
			res.MLFiles++
		}
		if fa.HasTraining {
			res.TrainingFiles++
		}
		res.TotalComplexity += fa.Complexity
	}

	return res, nil
}

// discover walks the tree and returns the sorted absolute paths of Python
// files matching the include patterns and none of the exclude patterns.
func discover(root string, include, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".py") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}

		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matchGlob(pat, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated relative path against a pattern using
// filepath.Match syntax per segment, with ** spanning any number of
// segments (including zero).
func matchGlob(pattern, rel string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, parts []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pat[1:], parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], parts[0])
		if err != nil || !ok {
			return false
		}
		pat = pat[1:]
		parts = parts[1:]
	}
	return len(parts) == 0
}
