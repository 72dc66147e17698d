package syntax

import (
	"errors"

	"github.com/golang/glog"

	"zasm/pkg/asm"
	"zasm/pkg/source"
)

// ParseFile parses name and every file it includes. The elements of an
// included file follow its Include element. An include path is looked up
// relative to the including file first and then as written; including a file
// that is already being parsed is reported as a cycle.
func ParseFile(name string, loader source.Loader) ([]asm.Element, asm.Diagnostics) {
	f := &fileParser{loader: loader, active: make(map[string]bool)}
	lines, err := loader.Load(name)
	if err != nil {
		f.diags.Add(asm.Syntax, asm.Location{File: name}, "%v", err)
		return nil, f.diags
	}
	elems := f.parse(name, lines)
	return elems, f.diags
}

type fileParser struct {
	loader source.Loader
	diags  asm.Diagnostics
	active map[string]bool // files on the current include chain
}

func (f *fileParser) parse(name string, lines []string) []asm.Element {
	key := source.Key(name)
	f.active[key] = true
	defer delete(f.active, key)

	elems, diags := Parse(name, lines)
	f.diags.Append(diags)
	glog.V(1).Infof("parse: %s, %d lines, %d elements", name, len(lines), len(elems))

	out := make([]asm.Element, 0, len(elems))
	for _, el := range elems {
		out = append(out, el)
		if inc, ok := el.(*asm.Include); ok {
			out = append(out, f.include(name, inc)...)
		}
	}
	return out
}

func (f *fileParser) include(from string, inc *asm.Include) []asm.Element {
	path := source.Resolve(from, inc.Path)
	lines, err := f.loader.Load(path)
	if errors.Is(err, source.ErrNotFound) && path != inc.Path {
		path = inc.Path
		lines, err = f.loader.Load(path)
	}
	if err != nil {
		f.diags.Add(asm.Syntax, inc.Location, "cannot include %q: %v", inc.Path, err)
		return nil
	}
	if f.active[source.Key(path)] {
		f.diags.Add(asm.Syntax, inc.Location, "circular include of %q", inc.Path)
		return nil
	}
	return f.parse(path, lines)
}
