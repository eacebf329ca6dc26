// manifest.go implements the pure manifest filter at the heart of the
// bundle descriptor: partitioning a packaging manifest against the
// exclusion list.
//
// The same semantics are embedded (as Python) into the generated spec
// files, where PyInstaller applies them to its full TOC at build time.
// The Go implementation is used to validate and preview the filter
// against collected data files, and is the reference for the partition
// invariants: kept ∪ excluded = input, kept ∩ excluded = ∅.
package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EntryKind distinguishes the two manifests the packaging tool maintains:
// plain data files and native binaries (shared libraries, plugins).
type EntryKind string

const (
	// KindData marks a plain data file (assets, translations, qml, ...).
	KindData EntryKind = "data"

	// KindBinary marks a native binary (shared library, Qt plugin, ...).
	KindBinary EntryKind = "binary"
)

// Entry is a single manifest row: a source file on disk and its
// destination path inside the bundle.
type Entry struct {
	// Dest is the path the file will have inside the bundle. Exclusion
	// matching runs against this path (normalized to forward slashes).
	Dest string

	// Source is the path of the file on the build machine.
	Source string

	// Kind says which of the two manifests the entry belongs to.
	Kind EntryKind
}

// NormalizePath converts backslash separators to forward slashes.
// Manifests produced on Windows mix separators; normalizing both the
// entry path and the pattern makes the exclusion list portable.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// MatchesExclusion reports whether the destination path is removed by
// the exclusion list. A pattern matches when it is a substring of the
// normalized destination path; there is no globbing.
func MatchesExclusion(dest string, patterns []string) bool {
	normalized := NormalizePath(dest)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(normalized, NormalizePath(pattern)) {
			return true
		}
	}
	return false
}

// Partition splits the manifest into kept and excluded entries.
// Both result slices preserve the input order. Every input entry lands
// in exactly one of the two slices.
func Partition(entries []Entry, patterns []string) (kept, excluded []Entry) {
	kept = make([]Entry, 0, len(entries))
	excluded = make([]Entry, 0)
	for _, entry := range entries {
		if MatchesExclusion(entry.Dest, patterns) {
			excluded = append(excluded, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	return kept, excluded
}

// NormalizePatterns de-duplicates and sorts an exclusion (or hidden
// import) list. The descriptor generator runs every list through this
// so repeated generation produces byte-identical files.
func NormalizePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// SplitDataSpec parses a "source:dest" data spec from pybundle.jsonc.
// A bare "source" (no colon) reuses the source path as the destination.
//
// The separator is always ':' regardless of platform — unlike
// PyInstaller's --add-data flag, which uses the OS path-list separator,
// the config file should mean the same thing on every machine. Windows
// drive letters are therefore not supported in specs, which is fine
// because sources must be project-relative anyway.
func SplitDataSpec(spec string) (source, dest string, err error) {
	if spec == "" {
		return "", "", fmt.Errorf("addData spec must not be empty")
	}
	source, dest, found := strings.Cut(spec, ":")
	if !found {
		dest = source
	}
	if source == "" || dest == "" {
		return "", "", fmt.Errorf("invalid addData spec %q: expected \"source:dest\"", spec)
	}
	if filepath.IsAbs(source) {
		return "", "", fmt.Errorf("invalid addData spec %q: source must be relative to the project root", spec)
	}
	return source, dest, nil
}

// CollectData expands the addData specs into individual manifest entries
// by walking the file system, then partitions them against the exclusion
// list. Directory specs are walked recursively; file specs yield one
// entry. A missing source is an error — a silently empty bundle is worse
// than a failed build.
func CollectData(projectRoot string, specs, patterns []string) (kept, excluded []Entry, err error) {
	var entries []Entry

	for _, spec := range specs {
		source, dest, specErr := SplitDataSpec(spec)
		if specErr != nil {
			return nil, nil, specErr
		}

		absSource := filepath.Join(projectRoot, source)
		info, statErr := os.Stat(absSource)
		if statErr != nil {
			return nil, nil, fmt.Errorf("addData source %q not found: %w", source, statErr)
		}

		if !info.IsDir() {
			entries = append(entries, Entry{
				Dest:   NormalizePath(filepath.Join(dest, filepath.Base(source))),
				Source: absSource,
				Kind:   KindData,
			})
			continue
		}

		// Directory spec: every file below the source lands under dest
		// with its relative path preserved.
		walkErr := filepath.WalkDir(absSource, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(absSource, path)
			if relErr != nil {
				return relErr
			}
			entries = append(entries, Entry{
				Dest:   NormalizePath(filepath.Join(dest, rel)),
				Source: path,
				Kind:   KindData,
			})
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("failed to walk addData source %q: %w", source, walkErr)
		}
	}

	kept, excluded = Partition(entries, patterns)
	return kept, excluded, nil
}
