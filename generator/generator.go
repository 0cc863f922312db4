// Package generator walks the ordered, filtered registry and produces Go
// binding source: ABI-faithful type declarations, function-pointer aliases,
// per-feature command tables and their loader routines.
package generator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/imports"

	"github.com/bsekura/vulkan-bindings/filter"
)

// EmissionError reports a failure writing generated artifacts. Generation
// is all-or-nothing: on any write failure the partial output is discarded.
type EmissionError struct {
	Path string
	Err  error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("emission failed: %s: %v", e.Path, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

type Generator struct {
	packageName string
	fr          *filter.Result
	layouts     map[string]layout
}

func New(packageName string, fr *filter.Result) *Generator {
	return &Generator{
		packageName: packageName,
		fr:          fr,
		layouts:     make(map[string]layout),
	}
}

// Generate produces the binding source files as a name -> content map.
// Identical filtered input yields byte-identical content: every emission
// path iterates ordered slices, never maps.
func (g *Generator) Generate() (map[string]string, error) {
	files := make(map[string]string)

	produce := func(name string, emit func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		g.writeHeader(&buf)
		if err := emit(&buf); err != nil {
			return fmt.Errorf("generating %s: %w", name, err)
		}
		src, err := imports.Process(name, buf.Bytes(), nil)
		if err != nil {
			return fmt.Errorf("formatting %s: %w", name, err)
		}
		files[name] = string(src)
		return nil
	}

	if err := produce("types.go", g.emitTypes); err != nil {
		return nil, err
	}
	if err := produce("const.go", g.emitConstants); err != nil {
		return nil, err
	}
	if err := produce("commands.go", g.emitCommands); err != nil {
		return nil, err
	}
	if err := produce("tables.go", g.emitTables); err != nil {
		return nil, err
	}
	if err := produce("proc.go", g.emitProc); err != nil {
		return nil, err
	}

	log.WithField("files", len(files)).Debug("bindings generated")
	return files, nil
}

func (g *Generator) writeHeader(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "// Code generated from the Vulkan API registry. DO NOT EDIT.\n")
	if v := g.fr.Registry.HeaderVersion; v != "" {
		fmt.Fprintf(buf, "// [vk.xml %s]\n", v)
	}
	fmt.Fprintf(buf, "\npackage %s\n\n", g.packageName)
}

// Write stores the generated files under dir. All files are staged first
// and renamed into place only after every write succeeds, so a failed
// write never leaves half-generated bindings behind. The rename pass
// itself is not atomic: it moves files one at a time within dir, and a
// failure mid-pass leaves the subset already renamed in place.
func (g *Generator) Write(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &EmissionError{Path: dir, Err: err}
	}
	stage, err := os.MkdirTemp(dir, ".vkgen-")
	if err != nil {
		return &EmissionError{Path: dir, Err: err}
	}
	defer os.RemoveAll(stage)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(stage, name), []byte(files[name]), 0o644); err != nil {
			return &EmissionError{Path: name, Err: err}
		}
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(stage, name), filepath.Join(dir, name)); err != nil {
			return &EmissionError{Path: name, Err: err}
		}
		log.WithField("file", filepath.Join(dir, name)).Info("wrote")
	}
	return nil
}
