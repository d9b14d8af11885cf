// Package shard resolves a cache configuration string into the on-disk file
// layout of a page cache: an ordered list of shard path prefixes plus the
// page-type suffix naming each shard's page file.
//
// A cache is described by a single ':'-separated string of path prefixes,
// e.g. "cache/train:cache2/train". Shard 0's prefix doubles as the path of
// the dataset metadata file; every shard's page file is its prefix plus a
// page-type suffix.
package shard

import (
	"errors"
	"runtime"
	"strings"
)

// Page-type suffixes appended to a shard prefix to form a page file path.
const (
	RowPageSuffix       = ".row.page"
	ColPageSuffix       = ".col.page"
	SortedColPageSuffix = ".sorted.col.page"
)

// ErrNoShards is returned when a cache configuration string yields no shard
// prefixes.
var ErrNoShards = errors.New("cache info contains no shard prefixes")

// ValidPageType reports whether s is one of the known page-type suffixes.
func ValidPageType(s string) bool {
	switch s {
	case RowPageSuffix, ColPageSuffix, SortedColPageSuffix:
		return true
	}
	return false
}

// Split parses a cache configuration string into an ordered list of shard
// path prefixes. On Windows a leading drive designator such as "C:" is kept
// attached to the first shard instead of being treated as a separator.
func Split(cacheInfo string) ([]string, error) {
	return split(cacheInfo, runtime.GOOS == "windows")
}

// split is the platform-independent core of Split; driveLetters enables the
// Windows drive-designator rule so it can be tested on any platform.
func split(cacheInfo string, driveLetters bool) ([]string, error) {
	if driveLetters && len(cacheInfo) >= 2 && isASCIIAlpha(cacheInfo[0]) && cacheInfo[1] == ':' {
		shards := splitNonEmpty(cacheInfo[2:])
		if len(shards) == 0 {
			// The whole string is just a drive designator ("C:").
			return nil, ErrNoShards
		}
		shards[0] = cacheInfo[:2] + shards[0]
		return shards, nil
	}
	shards := splitNonEmpty(cacheInfo)
	if len(shards) == 0 {
		return nil, ErrNoShards
	}
	return shards, nil
}

// splitNonEmpty splits on ':' and discards empty segments, so "a::b" and a
// trailing ':' do not produce phantom shards.
func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ":") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// MetadataPath returns the path of the dataset metadata file for the given
// shard list (always shard 0's prefix).
func MetadataPath(shards []string) string {
	return shards[0]
}

// PagePath returns the page file path for one shard prefix and page type.
func PagePath(prefix, pageType string) string {
	return prefix + pageType
}
