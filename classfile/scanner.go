package classfile

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// MatchMode selects how a Utf8 constant is compared with a target.
type MatchMode uint8

const (
	// Exact requires the constant and the target to be byte-identical.
	Exact MatchMode = iota
	// Prefix requires the constant to start with the target.
	Prefix
)

func (m MatchMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	}
	return fmt.Sprintf("MatchMode(%d)", uint8(m))
}

func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "prefix":
		return Prefix, nil
	}
	return Exact, fmt.Errorf("unknown match mode: %q (expected exact or prefix)", s)
}

// Scanner reports whether a class file's constant pool holds one of a set of
// target strings. It walks the pool once and never decodes anything except
// the Utf8 entries it compares.
//
// Find is safe for concurrent use, including concurrently with AddTarget.
type Scanner struct {
	mu         sync.Mutex
	targets    atomic.Pointer[[][]byte]
	maxVersion uint16
}

type Option func(*Scanner)

// WithMaxMajorVersion overrides DefaultMaxMajorVersion. Classes newer than
// the ceiling are reported as not matching without being scanned.
func WithMaxMajorVersion(major uint16) Option {
	return func(s *Scanner) {
		s.maxVersion = major
	}
}

func New(targets []string, opts ...Option) *Scanner {
	s := &Scanner{maxVersion: DefaultMaxMajorVersion}
	for _, opt := range opts {
		opt(s)
	}
	encoded := make([][]byte, len(targets))
	for i, t := range targets {
		encoded[i] = []byte(t)
	}
	s.targets.Store(&encoded)
	return s
}

// AddTarget appends a target. Earlier targets keep their position.
func (s *Scanner) AddTarget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	next := make([][]byte, len(old), len(old)+1)
	copy(next, old)
	next = append(next, []byte(target))
	s.targets.Store(&next)
}

func (s *Scanner) snapshot() [][]byte {
	if p := s.targets.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Scanner) Targets() []string {
	cur := s.snapshot()
	out := make([]string, len(cur))
	for i, t := range cur {
		out[i] = string(t)
	}
	return out
}

func (s *Scanner) Len() int {
	return len(s.snapshot())
}

func (s *Scanner) MaxMajorVersion() uint16 {
	return s.maxVersion
}

// Find reports whether any Utf8 constant in buf matches a target under mode.
//
// An empty buffer, or a class newer than the configured ceiling, yields
// false with no error. A pool that runs past the end of buf fails with
// ErrTruncated, and a tag without a known size fails with ErrUnknownTag.
func (s *Scanner) Find(buf []byte, mode MatchMode) (bool, error) {
	if len(buf) == 0 {
		return false, nil
	}
	if len(buf) < headerSize {
		return false, fmt.Errorf("read header (%d bytes): %w", len(buf), ErrTruncated)
	}

	major, err := MajorVersion(buf)
	if err != nil {
		return false, err
	}
	if major > s.maxVersion {
		return false, nil
	}

	count, err := readUnsignedShort(buf, 8)
	if err != nil {
		return false, err
	}

	targets := s.snapshot()
	off := headerSize
	// Slot 0 is unused; a count of n describes slots 1..n-1.
	for i := 1; i < int(count); i++ {
		b, err := readU1(buf, off)
		if err != nil {
			return false, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		tag := ConstantTag(b)

		if tag == ConstantUtf8 {
			length, err := readUnsignedShort(buf, off+1)
			if err != nil {
				return false, fmt.Errorf("constant pool entry %d: %w", i, err)
			}
			start := off + 3
			end := start + int(length)
			if end > len(buf) {
				return false, fmt.Errorf("constant pool entry %d: utf8 length %d at offset %d of %d: %w",
					i, length, start, len(buf), ErrTruncated)
			}
			if matchAny(buf[start:end], targets, mode) {
				return true, nil
			}
			off = end
			continue
		}

		size, ok := payloadSize(tag)
		if !ok {
			return false, fmt.Errorf("constant pool entry %d at offset %d: tag %d: %w", i, off, b, ErrUnknownTag)
		}
		if off+1+size > len(buf) {
			return false, fmt.Errorf("constant pool entry %d: %s at offset %d of %d: %w", i, tag, off, len(buf), ErrTruncated)
		}
		off += 1 + size
		if tag.IsWide() {
			i++
		}
	}
	return false, nil
}

func matchAny(entry []byte, targets [][]byte, mode MatchMode) bool {
	for _, t := range targets {
		if mode == Prefix {
			if bytes.HasPrefix(entry, t) {
				return true
			}
		} else if bytes.Equal(entry, t) {
			return true
		}
	}
	return false
}
