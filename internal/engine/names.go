package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// EntryName returns the name an added file is stored under. localName wins
// when set; otherwise the source path is used without its volume or leading
// separators.
func EntryName(sourcePath, localName string) string {
	if localName != "" {
		return strings.TrimLeft(filepath.ToSlash(localName), "/")
	}

	name := strings.TrimPrefix(sourcePath, filepath.VolumeName(sourcePath))
	name = strings.TrimLeft(path.Clean(filepath.ToSlash(name)), "/")
	if name == "." {
		return ""
	}
	return name
}

// JoinEntry joins a directory walk's relative path onto the archive prefix.
func JoinEntry(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

// DirEntryName returns name with the trailing slash that marks a directory
// entry.
func DirEntryName(name string) string {
	if strings.HasSuffix(name, "/") {
		return name
	}
	return name + "/"
}

// EntrySet holds the entry names requested for extraction. A nil set matches
// every entry.
type EntrySet map[string]bool

// NewEntrySet returns nil when no names are given.
func NewEntrySet(names []string) EntrySet {
	if len(names) == 0 {
		return nil
	}
	set := make(EntrySet, len(names))
	for _, name := range names {
		set[strings.TrimSuffix(name, "/")] = false
	}
	return set
}

// Match reports whether name was requested and marks it as seen.
func (s EntrySet) Match(name string) bool {
	if s == nil {
		return true
	}
	key := strings.TrimSuffix(name, "/")
	if _, ok := s[key]; !ok {
		return false
	}
	s[key] = true
	return true
}

// Missing returns the requested names that were never matched.
func (s EntrySet) Missing() []string {
	var missing []string
	for name, seen := range s {
		if !seen {
			missing = append(missing, name)
		}
	}
	return missing
}

// SafeJoin resolves an entry name below destination and rejects names that
// would escape it.
func SafeJoin(destination, name string) (string, error) {
	target := filepath.Join(destination, filepath.FromSlash(name))

	rel, err := filepath.Rel(destination, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path (path traversal detected): %s", name)
	}
	return target, nil
}

// ValidFileName reports whether name can hold a file entry.
func ValidFileName(name string) bool {
	return name != "" && !strings.HasSuffix(name, "/")
}
