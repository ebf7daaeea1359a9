package runner

import (
	"fmt"

	v1 "github.com/infracollect/zipfactory/apis/v1"
)

const (
	EntryKindFile    = "file"
	EntryKindDir     = "dir"
	EntryKindContent = "content"
)

// ResolvedEntry holds the kind of an entry and its source: a path for files
// and directories, the literal bytes for content.
type ResolvedEntry struct {
	Kind   string
	Source string
}

// ResolveEntrySpec extracts the kind and source from a v1.EntrySpec.
func ResolveEntrySpec(e v1.EntrySpec) (ResolvedEntry, error) {
	switch {
	case e.File != nil:
		return ResolvedEntry{Kind: EntryKindFile, Source: *e.File}, nil
	case e.Dir != nil:
		return ResolvedEntry{Kind: EntryKindDir, Source: *e.Dir}, nil
	case e.Content != nil:
		if e.Name == "" {
			return ResolvedEntry{}, fmt.Errorf("content entry has no name")
		}
		return ResolvedEntry{Kind: EntryKindContent, Source: *e.Content}, nil
	default:
		return ResolvedEntry{}, fmt.Errorf("entry %q has no source specified", e.Name)
	}
}
