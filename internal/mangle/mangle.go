// Package mangle derives stable, human-readable module-global names from
// a source identifier and the file it was declared in, per spec.md §4.1.
package mangle

import (
	"path/filepath"
	"strings"
)

// Mangler mangles names relative to one compilation's entry file, entry
// directory and built-in declaration file. Mangling is pure given these
// three fixed inputs: the same (name, sourceFile) pair always mangles to
// the same string within one Mangler, satisfying the injectivity property
// tested in spec.md §8.
type Mangler struct {
	EntryFile string
	EntryDir  string
	LibFile   string
}

// New returns a Mangler for one compilation. entryDir is typically
// filepath.Dir(entryFile).
func New(entryFile, libFile string) *Mangler {
	return &Mangler{EntryFile: entryFile, EntryDir: filepath.Dir(entryFile), LibFile: libFile}
}

// Mangle returns name unchanged if sourceFile is the entry file or the
// built-in declaration file; otherwise it prefixes name with the
// sanitized path from the entry directory to sourceFile, joined by the
// path separator, so that identically-named declarations in different
// imported files never collide as IR-level global names.
func (m *Mangler) Mangle(name, sourceFile string) string {
	if sourceFile == m.EntryFile || sourceFile == m.LibFile {
		return name
	}
	rel, err := filepath.Rel(m.EntryDir, sourceFile)
	if err != nil {
		rel = sourceFile
	}
	return sanitize(rel) + string(filepath.Separator) + name
}

// sanitize strips every byte outside [A-Za-z0-9./\$], matching spec.md
// §4.1's sanitize(relative(entry_dir, file_path)) rule exactly.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.' || c == '/' || c == '\\' || c == '$':
			b.WriteByte(c)
		}
	}
	return b.String()
}
