// Package tomldoc implements a format-preserving TOML document model.
//
// A Document is a line-oriented view of a TOML file: every line of the source
// is kept verbatim, grouped into blocks by their [table] headers. Structural
// edits (setting, replacing or deleting a key, dropping a table) touch only
// the lines they must, so comments, ordering and whitespace everywhere else
// survive a rewrite byte for byte.
//
// The package deliberately does not interpret values. Semantic decoding of the
// same text is done separately with BurntSushi/toml; tomldoc only needs to
// know enough TOML syntax to find table headers and top-level keys without
// being fooled by multi-line strings or arrays.
package tomldoc

import (
	"strings"

	"github.com/sink-tools/sink/pkg/errors"
)

// Document is an editable, layout-preserving representation of a TOML file.
type Document struct {
	blocks          []*block
	trailingNewline bool
}

// block is a run of lines headed by a [table] line. The root block (lines
// before the first header) has a nil path and an empty header.
type block struct {
	header string   // verbatim header line, "" for the root block
	path   []string // decoded table path, nil for the root block
	array  bool     // true for [[array-of-tables]] headers
	lines  []line
}

// line is one verbatim source line. key is the decoded key path when the line
// starts a top-level key/value pair in its table, nil otherwise (comments,
// blanks, continuation lines of multi-line values).
type line struct {
	raw string
	key []string
}

// Parse builds a Document from raw TOML text. The text is not validated as
// TOML beyond what is needed to track block and key boundaries; a file that
// BurntSushi/toml accepts will always parse here.
func Parse(text string) (*Document, error) {
	doc := &Document{trailingNewline: strings.HasSuffix(text, "\n")}

	raw := text
	if doc.trailingNewline {
		raw = strings.TrimSuffix(raw, "\n")
	}

	current := &block{}
	doc.blocks = append(doc.blocks, current)

	var st scanState
	var srcLines []string
	if text != "" {
		srcLines = strings.Split(raw, "\n")
	}

	for _, src := range srcLines {
		if st.open() {
			// Continuation of a multi-line string or array.
			st.feed(src)
			current.lines = append(current.lines, line{raw: src})
			continue
		}

		trimmed := strings.TrimSpace(src)
		switch {
		case strings.HasPrefix(trimmed, "["):
			path, array, err := parseHeader(trimmed)
			if err != nil {
				return nil, err
			}
			current = &block{header: src, path: path, array: array}
			doc.blocks = append(doc.blocks, current)

		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			current.lines = append(current.lines, line{raw: src})

		default:
			key, rest, err := splitKeyLine(trimmed)
			if err != nil {
				return nil, err
			}
			st.feed(rest)
			current.lines = append(current.lines, line{raw: src, key: key})
		}
	}

	if st.open() {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "unterminated multi-line value")
	}

	return doc, nil
}

// String serializes the document. Bytes not touched by an edit are identical
// to the parsed input.
func (d *Document) String() string {
	var sb strings.Builder
	first := true
	for _, b := range d.blocks {
		if b.header != "" {
			if !first {
				sb.WriteString("\n")
			}
			sb.WriteString(b.header)
			first = false
		}
		for _, l := range b.lines {
			if !first {
				sb.WriteString("\n")
			}
			sb.WriteString(l.raw)
			first = false
		}
	}
	out := sb.String()
	if d.trailingNewline {
		out += "\n"
	}
	return out
}

// HasTable reports whether a [table] header with the given path exists.
// The root block is addressed by an empty path and always exists.
func (d *Document) HasTable(table []string) bool {
	return d.findBlock(table) != nil
}

// HasKey reports whether key is set as a top-level key in the given table.
func (d *Document) HasKey(table []string, key string) bool {
	b := d.findBlock(table)
	if b == nil {
		return false
	}
	return b.findKey(key) >= 0
}

// SetKey sets key to v in the table addressed by path, creating the table
// block at the end of the document when it does not exist yet. An existing
// key line is replaced in place, keeping its indentation; a new key is
// appended after the last content line of the block so trailing blank lines
// stay where they were.
func (d *Document) SetKey(table []string, key string, v Value) {
	b := d.findBlock(table)
	if b == nil {
		b = d.appendBlock(table)
	}

	rendered := renderKey(key) + " = " + v.render()

	if i := b.findKey(key); i >= 0 {
		indent := b.lines[i].raw[:len(b.lines[i].raw)-len(strings.TrimLeft(b.lines[i].raw, " \t"))]
		b.lines[i] = line{raw: indent + rendered, key: []string{key}}
		return
	}

	b.insertAfterContent(line{raw: rendered, key: []string{key}})
}

// DeleteKey removes a top-level key line from the given table.
// It reports whether a line was removed.
func (d *Document) DeleteKey(table []string, key string) bool {
	b := d.findBlock(table)
	if b == nil {
		return false
	}
	i := b.findKey(key)
	if i < 0 {
		return false
	}
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	return true
}

// DeleteTable removes the [table] header with the given path along with all
// of its lines. It reports whether a block was removed. The root block cannot
// be deleted.
func (d *Document) DeleteTable(table []string) bool {
	if len(table) == 0 {
		return false
	}
	for i, b := range d.blocks {
		if !b.array && pathEqual(b.path, table) {
			d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// KeyCount returns the number of top-level keys set in the given table,
// or 0 when the table does not exist.
func (d *Document) KeyCount(table []string) int {
	b := d.findBlock(table)
	if b == nil {
		return 0
	}
	n := 0
	for _, l := range b.lines {
		if len(l.key) > 0 {
			n++
		}
	}
	return n
}

// CanAddress reports whether the given table path can be edited as a
// [table] block. A path whose value was declared as a key in an ancestor
// block, such as an inline table on the provider line, cannot be addressed:
// appending a header block for it would redefine the key.
func (d *Document) CanAddress(table []string) bool {
	if d.findBlock(table) != nil {
		return true
	}
	for i := 1; i <= len(table); i++ {
		if b := d.findBlock(table[:i-1]); b != nil && b.hasKeyPrefix(table[i-1]) {
			return false
		}
	}
	return true
}

func (d *Document) findBlock(table []string) *block {
	for _, b := range d.blocks {
		if !b.array && pathEqual(b.path, table) {
			return b
		}
	}
	return nil
}

func (d *Document) appendBlock(table []string) *block {
	// Separate the new table from preceding content with a blank line.
	if last := d.blocks[len(d.blocks)-1]; last.header != "" || len(last.lines) > 0 {
		if n := len(last.lines); n == 0 || strings.TrimSpace(last.lines[n-1].raw) != "" {
			last.lines = append(last.lines, line{raw: ""})
		}
	}

	b := &block{header: renderHeader(table), path: append([]string(nil), table...)}
	d.blocks = append(d.blocks, b)
	return b
}

func (b *block) findKey(key string) int {
	for i, l := range b.lines {
		if len(l.key) == 1 && l.key[0] == key {
			return i
		}
	}
	return -1
}

// hasKeyPrefix reports whether any key line in the block starts with name,
// covering both plain keys and dotted keys like "dependencies.foo".
func (b *block) hasKeyPrefix(name string) bool {
	for _, l := range b.lines {
		if len(l.key) > 0 && l.key[0] == name {
			return true
		}
	}
	return false
}

// insertAfterContent places l after the last non-blank line of the block,
// so trailing blank separator lines keep trailing.
func (b *block) insertAfterContent(l line) {
	at := 0
	for i := len(b.lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(b.lines[i].raw) != "" {
			at = i + 1
			break
		}
	}
	b.lines = append(b.lines, line{})
	copy(b.lines[at+1:], b.lines[at:])
	b.lines[at] = l
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
