package engine

// Archiver is the capability set shared by every ZIP engine adapter.
//
// Operations other than construction report failure through their boolean
// return value; callers must check it. An Archiver is not safe for concurrent
// use and Close must be called at most once.
type Archiver interface {
	// AddFile adds the file at path to the archive under localName. An empty
	// localName stores the file under its own path. start and length select a
	// byte range of the source file where the engine supports it; 0, 0 adds
	// the whole file.
	AddFile(path, localName string, start, length int64) bool

	// AddDir recursively adds every file and subdirectory under path,
	// preserving the relative structure under localName. Empty directories
	// are stored as explicit directory entries.
	AddDir(path, localName string)

	// AddFromContent adds an entry named localName whose body is exactly
	// content.
	AddFromContent(localName string, content []byte) bool

	// ExtractTo extracts the named entries into destination, or every entry
	// when no names are given.
	ExtractTo(destination string, entries ...string) bool

	// Close releases the archive handle, committing pending changes.
	Close() bool
}
