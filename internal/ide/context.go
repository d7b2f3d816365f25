package ide

import (
	"maps"
	"path/filepath"
	"strings"
)

// Placeholder names defined by every Context.
const (
	KeyDir       = "dir"
	KeyShortName = "shortname"
	KeyPath      = "path"
	KeyDesign    = "design"
	KeyName      = "name"
)

// Context holds the values available to templates during one execution.
// It is a value: WithArtifact returns an extended copy.
type Context struct {
	Dir       string
	ShortName string
	Design    string
	Path      string
	values    map[string]string
}

// NewContext derives the base context from the design file path. Until an
// artifact is generated, path names the design file itself.
func NewContext(design string) Context {
	base := filepath.Base(design)
	return Context{
		Dir:       filepath.Dir(design),
		ShortName: strings.TrimSuffix(base, filepath.Ext(base)),
		Design:    design,
		Path:      design,
	}
}

// WithArtifact returns a copy with path pointing at the artifact and the
// generator's values added.
func (c Context) WithArtifact(path string, values map[string]string) Context {
	out := c
	out.Path = path
	out.values = maps.Clone(c.values)
	if len(values) > 0 && out.values == nil {
		out.values = make(map[string]string, len(values))
	}
	maps.Copy(out.values, values)
	return out
}

// Lookup implements template.Scope. Builtin names shadow generator values.
func (c Context) Lookup(name string) (string, bool) {
	switch name {
	case KeyDir:
		return c.Dir, true
	case KeyShortName:
		return c.ShortName, true
	case KeyDesign:
		return c.Design, true
	case KeyName:
		return filepath.Base(c.Design), true
	case KeyPath:
		return c.Path, true
	}
	v, ok := c.values[name]
	return v, ok
}

// ArtifactPath returns <dir>/<shortname>.<ext>.
func (c Context) ArtifactPath(ext string) string {
	return filepath.Join(c.Dir, c.ShortName+"."+ext)
}

// resolvePath places a relative file name under the design directory.
func (c Context) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}
