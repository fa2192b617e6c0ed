package chunk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry([]string{"air", "minecraft:stone", "grass_block", "stone", "mod:widget"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		want uint16
		ok   bool
	}{
		{"minecraft:air", 0, true},
		{"stone", 1, true},
		{"minecraft:stone", 1, true},
		{"minecraft:grass_block", 2, true},
		{"other:widget", 4, true},
		{"minecraft:dirt", 0, false},
		{"Stone", 0, false},
	}
	for _, tt := range tests {
		got, ok := r.Lookup(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
	if r.Len() != 5 || r.Name(3) != "stone" || r.Name(9) != "" {
		t.Errorf("Len %d, Name(3) %q, Name(9) %q", r.Len(), r.Name(3), r.Name(9))
	}
}

func TestRegistryTooLarge(t *testing.T) {
	if _, err := NewRegistry(make([]string, 1<<16+1)); err == nil {
		t.Error("expected an error for more than 65536 names")
	}
}

func TestReadRegistry(t *testing.T) {
	const table = `r,name,g,shape
0,air,0,
1, minecraft:stone ,2,solid
5,water,200,liquid
`
	r, err := ReadRegistry(strings.NewReader(table))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for i := 0; i < r.Len(); i++ {
		names = append(names, r.Name(uint16(i)))
	}
	if diff := cmp.Diff([]string{"air", "stone", "water"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}

	if _, err := ReadRegistry(strings.NewReader("r,g\n1,2\n")); err == nil {
		t.Error("expected an error without a name column")
	}
	if _, err := ReadRegistry(strings.NewReader("")); err == nil {
		t.Error("expected an error for an empty file")
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.csv")
	if err := os.WriteFile(path, []byte("name\nair\noak_log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := r.Lookup("minecraft:oak_log"); !ok || i != 1 {
		t.Errorf("Lookup = %d, %v", i, ok)
	}
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
