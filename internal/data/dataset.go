package data

import "strings"

// File is one entry of a Dataset.
//
// While NeedsFetch is true the entry is a candidate: only Path, Name and
// (optionally) SourceURL are set. Once fetched it becomes a record with
// NeedsFetch false, size-bounded Content and a resolved Language.
type File struct {
	Path       string
	Name       string
	SourceURL  string
	NeedsFetch bool

	Content  string
	Size     int
	Language string
}

// Candidate builds an unfetched entry for path. Name is the last path segment.
func Candidate(path, sourceURL string) File {
	return File{
		Path:       path,
		Name:       BaseName(path),
		SourceURL:  sourceURL,
		NeedsFetch: true,
	}
}

// BaseName returns the last '/'-separated segment of p.
func BaseName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dataset accumulates everything one analysis run learns about a repository
// subtree. It is owned by a single run and is never shared.
type Dataset struct {
	Files     []File
	Structure []string
	Metadata  *Metadata

	seen map[string]struct{}
}

func NewDataset() *Dataset {
	return &Dataset{seen: make(map[string]struct{})}
}

// Add appends f unless an entry with the same path already exists.
// It reports whether f was added.
func (d *Dataset) Add(f File) bool {
	if d.seen == nil {
		d.seen = make(map[string]struct{}, len(d.Files))
		for _, existing := range d.Files {
			d.seen[existing.Path] = struct{}{}
		}
	}
	if _, dup := d.seen[f.Path]; dup {
		return false
	}
	d.seen[f.Path] = struct{}{}
	d.Files = append(d.Files, f)
	return true
}

// Has reports whether an entry with path exists.
func (d *Dataset) Has(path string) bool {
	for _, f := range d.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// AddStructureLine records a discovered path in the structure listing.
// A line already present is not repeated; the result reports whether it was new.
func (d *Dataset) AddStructureLine(line string) bool {
	for _, existing := range d.Structure {
		if existing == line {
			return false
		}
	}
	d.Structure = append(d.Structure, line)
	return true
}

// StructureText renders the structure listing, one path per line.
func (d *Dataset) StructureText() string {
	if d == nil {
		return ""
	}
	return strings.Join(d.Structure, "\n")
}

// Pending returns the number of entries still waiting to be fetched.
func (d *Dataset) Pending() int {
	n := 0
	for _, f := range d.Files {
		if f.NeedsFetch {
			n++
		}
	}
	return n
}

// ReplaceFiles swaps the file sequence, rebuilding the path index.
func (d *Dataset) ReplaceFiles(files []File) {
	d.Files = files
	d.seen = make(map[string]struct{}, len(files))
	for _, f := range files {
		d.seen[f.Path] = struct{}{}
	}
}
