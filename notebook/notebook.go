// Package notebook reads and writes Jupyter notebooks (nbformat 4).
//
// Only the cell sources are exposed for modification. Every other field of
// the document and of each cell is kept as raw JSON and written back
// unchanged, so a parse/marshal round trip touches nothing but the sources
// that were replaced.
package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// CellKind is the value of a cell's cell_type field.
type CellKind string

const (
	Markdown CellKind = "markdown"
	Code     CellKind = "code"
	Raw      CellKind = "raw"
)

// Cell is one notebook cell.
type Cell struct {
	Kind   CellKind
	Source string

	fields     map[string]json.RawMessage
	sourceList bool
	rawSource  string // Source as it was parsed
}

// WithSource returns a copy of the cell whose source is replaced by s.
func (c Cell) WithSource(s string) Cell {
	c.Source = s
	return c
}

// Changed reports whether the source differs from the parsed one.
func (c Cell) Changed() bool {
	return c.Source != c.rawSource
}

// Field returns the raw JSON of a cell field other than the source.
func (c Cell) Field(name string) (json.RawMessage, bool) {
	v, ok := c.fields[name]
	return v, ok
}

// Tags returns the cell's metadata tags.
func (c Cell) Tags() []string {
	var meta struct {
		Tags []string `json:"tags"`
	}
	if raw, ok := c.fields["metadata"]; ok {
		_ = json.Unmarshal(raw, &meta)
	}
	return meta.Tags
}

// HasTag reports whether the cell carries tag.
func (c Cell) HasTag(tag string) bool {
	return slices.Contains(c.Tags(), tag)
}

// Document is a parsed notebook.
type Document struct {
	Cells         []Cell
	NBFormat      int
	NBFormatMinor int

	fields map[string]json.RawMessage
}

// Field returns the raw JSON of a top-level field other than cells.
func (d *Document) Field(name string) (json.RawMessage, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// Language returns the kernel language recorded in the notebook metadata,
// or an empty string.
func (d *Document) Language() string {
	var meta struct {
		KernelSpec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	}
	if raw, ok := d.fields["metadata"]; ok {
		_ = json.Unmarshal(raw, &meta)
	}
	if meta.KernelSpec.Language != "" {
		return meta.KernelSpec.Language
	}
	return meta.LanguageInfo.Name
}

// WithCells returns a copy of the document holding cells.
// The envelope fields are shared; they are never modified.
func (d *Document) WithCells(cells []Cell) *Document {
	out := *d
	out.Cells = cells
	return &out
}

// CountKind returns the number of cells of the given kind.
func (d *Document) CountKind(kind CellKind) int {
	n := 0
	for _, c := range d.Cells {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// ReadFile reads and parses a notebook file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses notebook JSON.
func Parse(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &FormatError{Message: "document is not a JSON object", Cause: err}
	}
	if fields == nil {
		return nil, &FormatError{Message: "document is not a JSON object"}
	}

	doc := &Document{fields: fields}

	rawFormat, ok := fields["nbformat"]
	if !ok {
		return nil, &FormatError{Field: "nbformat", Message: "missing"}
	}
	if err := json.Unmarshal(rawFormat, &doc.NBFormat); err != nil {
		return nil, &FormatError{Field: "nbformat", Message: "not an integer", Cause: err}
	}
	if doc.NBFormat < 4 {
		return nil, &FormatError{Field: "nbformat", Message: fmt.Sprintf("version %d is not supported", doc.NBFormat)}
	}
	if rawMinor, ok := fields["nbformat_minor"]; ok {
		if err := json.Unmarshal(rawMinor, &doc.NBFormatMinor); err != nil {
			return nil, &FormatError{Field: "nbformat_minor", Message: "not an integer", Cause: err}
		}
	}

	rawMeta, ok := fields["metadata"]
	if !ok {
		return nil, &FormatError{Field: "metadata", Message: "missing"}
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(rawMeta, &meta); err != nil || meta == nil {
		return nil, &FormatError{Field: "metadata", Message: "not an object", Cause: err}
	}

	rawCells, ok := fields["cells"]
	if !ok {
		return nil, &FormatError{Field: "cells", Message: "missing"}
	}
	var cells []json.RawMessage
	if err := json.Unmarshal(rawCells, &cells); err != nil {
		return nil, &FormatError{Field: "cells", Message: "not an array", Cause: err}
	}

	doc.Cells = make([]Cell, 0, len(cells))
	for i, raw := range cells {
		cell, err := parseCell(raw)
		if err != nil {
			if fe, ok := err.(*FormatError); ok {
				if fe.Field == "" {
					fe.Field = fmt.Sprintf("cells[%d]", i)
				} else {
					fe.Field = fmt.Sprintf("cells[%d].%s", i, fe.Field)
				}
			}
			return nil, err
		}
		doc.Cells = append(doc.Cells, cell)
	}

	return doc, nil
}

func parseCell(raw json.RawMessage) (Cell, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Cell{}, &FormatError{Message: "cell is not an object", Cause: err}
	}

	cell := Cell{fields: fields}

	rawKind, ok := fields["cell_type"]
	if !ok {
		return Cell{}, &FormatError{Field: "cell_type", Message: "missing"}
	}
	var kind string
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return Cell{}, &FormatError{Field: "cell_type", Message: "not a string", Cause: err}
	}
	cell.Kind = CellKind(kind)

	rawSource, ok := fields["source"]
	if !ok {
		return Cell{}, &FormatError{Field: "source", Message: "missing"}
	}
	trimmed := bytes.TrimSpace(rawSource)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lines []string
		if err := json.Unmarshal(rawSource, &lines); err != nil {
			return Cell{}, &FormatError{Field: "source", Message: "not a list of strings", Cause: err}
		}
		cell.Source = strings.Join(lines, "")
		cell.sourceList = true
	} else {
		if err := json.Unmarshal(rawSource, &cell.Source); err != nil {
			return Cell{}, &FormatError{Field: "source", Message: "not a string or list of strings", Cause: err}
		}
	}
	cell.rawSource = cell.Source

	return cell, nil
}

// MarshalOptions controls notebook serialization.
type MarshalOptions struct {
	Indent string // default: one space, like nbformat
}

// Marshal serializes the document. Keys are sorted, non-ASCII text and HTML
// characters are written literally, and a trailing newline is added.
func (d *Document) Marshal(opts MarshalOptions) ([]byte, error) {
	indent := opts.Indent
	if indent == "" {
		indent = " "
	}

	cells := make([]json.RawMessage, len(d.Cells))
	for i, c := range d.Cells {
		raw, err := c.marshal()
		if err != nil {
			return nil, fmt.Errorf("encoding cell %d: %w", i, err)
		}
		cells[i] = raw
	}

	out := make(map[string]json.RawMessage, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	rawCells, err := encode(cells)
	if err != nil {
		return nil, err
	}
	out["cells"] = rawCells

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding notebook: %w", err)
	}
	return buf.Bytes(), nil
}

func (c Cell) marshal() (json.RawMessage, error) {
	if !c.Changed() {
		return encode(c.fields)
	}

	out := make(map[string]json.RawMessage, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}

	var src any = c.Source
	if c.sourceList {
		src = SplitLines(c.Source)
	}
	raw, err := encode(src)
	if err != nil {
		return nil, err
	}
	out["source"] = raw

	return encode(out)
}

func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SplitLines splits s after each newline, the way nbformat stores sources.
// An empty string yields an empty list.
func SplitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// WriteFile writes the document to path atomically: the data goes to a
// temporary file in the same directory which is then renamed over path.
func WriteFile(path string, d *Document, opts MarshalOptions) error {
	data, err := d.Marshal(opts)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
