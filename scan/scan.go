// Package scan runs a classfile.Scanner over directories, class files and
// jar archives.
package scan

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	doublestar "github.com/bmatcuk/doublestar/v4"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/poolscan/classfile"
)

// ArchiveSeparator joins an archive path and the entry inside it.
const ArchiveSeparator = "!/"

const maxNestingDepth = 4

var log = commonlog.GetLogger("poolscan.scan")

type Options struct {
	Mode classfile.MatchMode

	// Include and Exclude are doublestar globs matched against the path
	// relative to the root, or the entry name inside an archive. A path
	// matches if the glob matches it or its base name.
	Include []string
	Exclude []string

	Workers        int
	NestedArchives bool

	// MaxEntryBytes skips class files larger than this. Zero means no limit.
	MaxEntryBytes int64
}

type Result struct {
	Path    string
	Major   uint16
	Matched bool
	Cached  bool
	Err     error
}

type Summary struct {
	Files     int
	Matched   int
	Errors    int
	Skipped   int
	CacheHits int
}

type verdict struct {
	major   uint16
	matched bool
	err     error
}

// cacheEntry is filled by the first worker to see a content hash. Later
// workers wait on done, so identical bytes are scanned exactly once.
type cacheEntry struct {
	done chan struct{}
	v    verdict
}

type Runner struct {
	scanner *classfile.Scanner
	opts    Options
}

func New(scanner *classfile.Scanner, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{scanner: scanner, opts: opts}
}

// run holds the state of a single Run call.
type run struct {
	*Runner
	g    *errgroup.Group
	ctx  context.Context
	emit func(Result)

	mu      sync.Mutex
	summary Summary
	cache   map[uint64]*cacheEntry
}

// Run scans every class file reachable from roots and calls emit once per
// scanned file. emit is never called concurrently. Decode failures are
// reported through Result.Err; Run only fails when a root cannot be read
// or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, roots []string, emit func(Result)) (Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	st := &run{
		Runner: r,
		g:      g,
		ctx:    gctx,
		emit:   emit,
		cache:  make(map[uint64]*cacheEntry),
	}

	var walkErr error
	for _, root := range roots {
		if err := st.walkRoot(root); err != nil {
			walkErr = err
			break
		}
	}
	waitErr := g.Wait()

	if walkErr != nil {
		return st.summary, walkErr
	}
	if waitErr != nil {
		return st.summary, waitErr
	}
	return st.summary, ctx.Err()
}

func (st *run) walkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}

	if info.IsDir() {
		return st.walkDirectory(root)
	}

	switch strings.ToLower(filepath.Ext(root)) {
	case ".class":
		st.submitFile(root, filepath.Base(root), info.Size())
		return nil
	case ".jar", ".zip":
		return st.walkArchiveFile(root)
	}
	return fmt.Errorf("unsupported file type: %s", root)
}

func (st *run) walkDirectory(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			st.record(Result{Path: p, Err: err})
			return nil
		}
		if ctxErr := st.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".class":
			info, err := d.Info()
			if err != nil {
				st.record(Result{Path: p, Err: err})
				return nil
			}
			st.submitFile(p, rel, info.Size())
		case ".jar", ".zip":
			if err := st.walkArchiveFile(p); err != nil {
				log.Warningf("%s: %v", p, err)
				st.record(Result{Path: p, Err: err})
			}
		}
		return nil
	})
}

func (st *run) submitFile(file, rel string, size int64) {
	if !st.allowed(rel) || st.tooLarge(size) {
		st.skip(file)
		return
	}
	st.g.Go(func() error {
		data, err := os.ReadFile(file)
		if err != nil {
			st.record(Result{Path: file, Err: err})
			return nil
		}
		st.check(file, data)
		return nil
	})
}

func (st *run) walkArchiveFile(file string) error {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()
	return st.walkArchive(&zr.Reader, file, 0)
}

// walkArchive reads matching entries eagerly so that workers never touch
// the archive after it is closed.
func (st *run) walkArchive(zr *zip.Reader, prefix string, depth int) error {
	for _, f := range zr.File {
		if err := st.ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		entryPath := prefix + ArchiveSeparator + f.Name
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".class":
			if !st.allowed(f.Name) || st.tooLarge(int64(f.UncompressedSize64)) {
				st.skip(entryPath)
				continue
			}
			data, err := readEntry(f)
			if err != nil {
				st.record(Result{Path: entryPath, Err: err})
				continue
			}
			st.g.Go(func() error {
				st.check(entryPath, data)
				return nil
			})
		case ".jar", ".zip":
			if !st.opts.NestedArchives {
				continue
			}
			if depth+1 >= maxNestingDepth {
				log.Warningf("%s: archive nesting deeper than %d, skipping", entryPath, maxNestingDepth)
				st.skip(entryPath)
				continue
			}
			data, err := readEntry(f)
			if err != nil {
				st.record(Result{Path: entryPath, Err: err})
				continue
			}
			inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				st.record(Result{Path: entryPath, Err: fmt.Errorf("open nested archive: %w", err)})
				continue
			}
			if err := st.walkArchive(inner, entryPath, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	return data, nil
}

func (st *run) check(name string, data []byte) {
	key := xxhash.Sum64(data)

	st.mu.Lock()
	e, hit := st.cache[key]
	if !hit {
		e = &cacheEntry{done: make(chan struct{})}
		st.cache[key] = e
	}
	st.mu.Unlock()

	if hit {
		<-e.done
	} else {
		if major, err := classfile.MajorVersion(data); err == nil {
			e.v.major = major
		}
		e.v.matched, e.v.err = st.scanner.Find(data, st.opts.Mode)
		close(e.done)
	}
	v := e.v

	if v.err != nil {
		log.Warningf("%s: %v", name, v.err)
	} else {
		log.Debugf("%s: major=%d matched=%t cached=%t", name, v.major, v.matched, hit)
	}
	st.record(Result{Path: name, Major: v.major, Matched: v.matched, Cached: hit, Err: v.err})
}

func (st *run) record(res Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.summary.Files++
	if res.Cached {
		st.summary.CacheHits++
	}
	switch {
	case res.Err != nil:
		st.summary.Errors++
	case res.Matched:
		st.summary.Matched++
	}
	if st.emit != nil {
		st.emit(res)
	}
}

func (st *run) skip(name string) {
	log.Debugf("%s: skipped", name)
	st.mu.Lock()
	st.summary.Skipped++
	st.mu.Unlock()
}

func (st *run) tooLarge(size int64) bool {
	return st.opts.MaxEntryBytes > 0 && size > st.opts.MaxEntryBytes
}

func (st *run) allowed(rel string) bool {
	rel = filepath.ToSlash(rel)
	if len(st.opts.Include) > 0 && !matchAnyGlob(rel, st.opts.Include) {
		return false
	}
	return !matchAnyGlob(rel, st.opts.Exclude)
}

func matchAnyGlob(p string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, path.Base(p)); ok {
			return true
		}
	}
	return false
}

// IsDecodeError reports whether err came from a malformed class file rather
// than from I/O.
func IsDecodeError(err error) bool {
	return errors.Is(err, classfile.ErrTruncated) || errors.Is(err, classfile.ErrUnknownTag)
}
