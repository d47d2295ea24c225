package spec

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/sigreer/targetgod/fabric"
)

//go:embed builtin/*.spec
var builtinFS embed.FS

// Builtins returns descriptors for the fabrics the target subsystem
// ships with. They are parsed from canonical descriptor sources
// embedded in the library, keeping the declarative grammar the single
// source of truth; a search-path descriptor of the same name takes
// precedence over a builtin.
func Builtins() ([]fabric.Descriptor, error) {
	paths, err := fs.Glob(builtinFS, "builtin/*"+Ext)
	if err != nil {
		return nil, err
	}
	parser := NewParser()
	out := make([]fabric.Descriptor, 0, len(paths))
	for _, path := range paths {
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("builtin descriptor %s: %w", path, err)
		}
		d, err := parser.Parse(data, Name(path))
		if err != nil {
			return nil, fmt.Errorf("builtin descriptor: %w", err)
		}
		out = append(out, *d)
	}
	return out, nil
}
