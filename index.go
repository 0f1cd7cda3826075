// This file implements a sorted, cached view over the directory region --
// a thin convenience layer for listing tools, following the same
// sort-and-cache idiom the teacher's tree index uses for building a stable,
// repeatedly-queryable listing out of an otherwise unordered scan.

package mdos

import (
	"reflect"
	"sort"

	"github.com/dsoprea/go-logging"
)

// DirectoryIndex holds a snapshot of the directory's live entries, sorted
// by full filename. It does not observe later mutations to the underlying
// directory; call Refresh to resynchronize.
type DirectoryIndex struct {
	dir *Directory

	names   sort.StringSlice
	entries map[string]*DirectoryEntry
}

// NewDirectoryIndex builds an index over dir, populated by an initial
// Refresh.
func NewDirectoryIndex(dir *Directory) (index *DirectoryIndex, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	index = &DirectoryIndex{dir: dir}

	err = index.Refresh()
	log.PanicIf(err)

	return index, nil
}

// Refresh re-scans the directory and rebuilds the sorted name list.
func (idx *DirectoryIndex) Refresh() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	entries, err := idx.dir.Enumerate()
	log.PanicIf(err)

	idx.entries = make(map[string]*DirectoryEntry, len(entries))
	idx.names = make(sort.StringSlice, 0, len(entries))

	for _, e := range entries {
		full := e.FullName()
		idx.entries[full] = e
		idx.names = append(idx.names, full)
	}

	idx.names.Sort()

	return nil
}

// Names returns the sorted list of full filenames as of the last Refresh.
func (idx *DirectoryIndex) Names() []string {
	out := make([]string, len(idx.names))
	copy(out, idx.names)
	return out
}

// Lookup returns the cached entry for a full filename, as of the last
// Refresh.
func (idx *DirectoryIndex) Lookup(fullName string) (*DirectoryEntry, bool) {
	e, found := idx.entries[fullName]
	return e, found
}

// Len returns the number of indexed entries.
func (idx *DirectoryIndex) Len() int {
	return len(idx.names)
}
