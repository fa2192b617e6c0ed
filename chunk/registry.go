package chunk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Air is the block index that zero-filled arrays stand for. Registries are
// expected to list air first.
const Air uint16 = 0

const maxBlockTypes = 1 << 16

var ErrUnknownBlock = errors.New("chunk: unknown block type")

// Registry maps block names to the indices stored in Data.Blocks.
type Registry struct {
	names []string
	index map[string]uint16
}

// NewRegistry indexes names in order. Names are stored without a namespace
// prefix. When a name repeats, its first index is kept.
func NewRegistry(names []string) (*Registry, error) {
	if len(names) > maxBlockTypes {
		return nil, fmt.Errorf("chunk: %d block types, at most %d are supported", len(names), maxBlockTypes)
	}
	r := &Registry{
		names: make([]string, len(names)),
		index: make(map[string]uint16, len(names)),
	}
	for i, name := range names {
		name = stripNamespace(name)
		r.names[i] = name
		if _, ok := r.index[name]; !ok {
			r.index[name] = uint16(i)
		}
	}
	return r, nil
}

// LoadRegistry reads block names from the "name" column of a CSV file.
func LoadRegistry(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r, err := ReadRegistry(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r, nil
}

func ReadRegistry(source io.Reader) (*Registry, error) {
	records := csv.NewReader(source)
	records.FieldsPerRecord = -1
	records.TrimLeadingSpace = true

	header, err := records.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	column := -1
	for i, field := range header {
		if strings.TrimSpace(field) == "name" {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, errors.New("no name column")
	}

	var names []string
	for {
		record, err := records.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if column >= len(record) {
			line, _ := records.FieldPos(0)
			return nil, fmt.Errorf("line %d: missing name", line)
		}
		names = append(names, strings.TrimSpace(record[column]))
	}
	return NewRegistry(names)
}

// Lookup returns the index of a block name, with or without its namespace.
func (r *Registry) Lookup(name string) (uint16, bool) {
	i, ok := r.index[stripNamespace(name)]
	return i, ok
}

func (r *Registry) Name(i uint16) string {
	if int(i) >= len(r.names) {
		return ""
	}
	return r.names[i]
}

func (r *Registry) Len() int {
	return len(r.names)
}

func stripNamespace(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
