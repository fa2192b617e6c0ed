package world

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/astei/anvilmap/chunk"
	"github.com/astei/anvilmap/coord"
	"github.com/astei/anvilmap/internal/testworld"
)

func testDecoder(t *testing.T) *chunk.Decoder {
	t.Helper()
	registry, err := chunk.NewRegistry([]string{"air", "stone"})
	if err != nil {
		t.Fatal(err)
	}
	return chunk.NewDecoder(registry)
}

// marked returns a chunk whose biomes are all set to marker.
func marked(u coord.Pair, marker byte) testworld.Chunk {
	c := testworld.NewChunk(u)
	c.Level.Biomes = bytes.Repeat([]byte{marker}, 256)
	return c
}

func buildWorld(t *testing.T, chunks map[coord.Pair]byte) *testworld.World {
	t.Helper()
	w := testworld.NewWorld(t.TempDir())
	for u, marker := range chunks {
		if err := w.PutChunk(u, marked(u, marker)); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func save(t *testing.T, w *testworld.World) {
	t.Helper()
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBoundsWithAbsentRegion(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{
		{X: 0, Z: 0}: 1, {X: 1, Z: 0}: 1, {X: 0, Z: 1}: 1, {X: 1, Z: 1}: 1,
	})
	save(t, fixture)

	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(coord.Edges{N: 0, E: 31, S: 31, W: 0}, w.BlockEdges); diff != "" {
		t.Errorf("BlockEdges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{N: 0, E: 1, S: 1, W: 0}, w.UnitEdges); diff != "" {
		t.Errorf("UnitEdges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{}, w.RegionEdges); diff != "" {
		t.Errorf("RegionEdges (-want +got):\n%s", diff)
	}
	if w.BlockEdges.Size() != (coord.Pair{X: 32, Z: 32}) {
		t.Errorf("block size = %v", w.BlockEdges.Size())
	}
}

func TestBoundsIgnoresEmptyRegionsAndOtherFiles(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{{X: 3, Z: 3}: 1})
	fixture.Region(coord.Pair{X: 1, Z: 0})
	save(t, fixture)

	regionDir := filepath.Join(fixture.Dir, "region")
	for _, name := range []string{"r.5.5.mca.tmp", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(regionDir, name), []byte("junk"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(regionDir, "r.9.9.mca"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]coord.Pair{{X: 0, Z: 0}}, w.Containers()); diff != "" {
		t.Errorf("Containers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{N: 48, E: 63, S: 63, W: 48}, w.BlockEdges); diff != "" {
		t.Errorf("BlockEdges (-want +got):\n%s", diff)
	}
}

func TestBoundsCombineOuterRegions(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{
		{X: -1, Z: 5}:  1,
		{X: 3, Z: 2}:   1,
		{X: 10, Z: 63}: 1,
		{X: 20, Z: 40}: 1,
	})
	save(t, fixture)

	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(coord.Edges{N: 0, E: 0, S: 1, W: -1}, w.RegionEdges); diff != "" {
		t.Errorf("RegionEdges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{N: 2, E: 20, S: 63, W: -1}, w.UnitEdges); diff != "" {
		t.Errorf("UnitEdges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{N: 32, E: 335, S: 1023, W: -16}, w.BlockEdges); diff != "" {
		t.Errorf("BlockEdges (-want +got):\n%s", diff)
	}
	want := map[coord.Pair]coord.Edges{
		{X: -1, Z: 0}: {N: 5, E: 31, S: 5, W: 31},
		{X: 0, Z: 0}:  {N: 2, E: 3, S: 2, W: 3},
		{X: 0, Z: 1}:  {N: 8, E: 20, S: 31, W: 10},
	}
	if diff := cmp.Diff(want, w.Regions); diff != "" {
		t.Errorf("Regions (-want +got):\n%s", diff)
	}
}

func TestBoundsWithLimits(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{
		{X: 0, Z: 0}:   1,
		{X: 20, Z: 20}: 1,
		{X: 40, Z: 3}:  1,
		{X: -5, Z: -5}: 1,
	})
	save(t, fixture)

	var logs bytes.Buffer
	limits := coord.Edges{N: 2, E: 200, S: 100, W: 4}
	w, err := Open(fixture.Dir, Options{Limits: &limits, Logger: quietLogger(&logs)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(coord.Edges{}, w.UnitEdges); diff != "" {
		t.Errorf("UnitEdges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coord.Edges{N: 2, E: 15, S: 15, W: 4}, w.BlockEdges); diff != "" {
		t.Errorf("BlockEdges (-want +got):\n%s", diff)
	}
	if len(w.Regions) != 1 {
		t.Errorf("regions = %v", w.Regions)
	}
	if !strings.Contains(logs.String(), "region outside limits") {
		t.Errorf("expected a debug line for skipped regions, got:\n%s", logs.String())
	}
}

func TestOpenEmptyWorld(t *testing.T) {
	fixture := testworld.NewWorld(t.TempDir())
	fixture.Region(coord.Pair{})
	save(t, fixture)
	if _, err := Open(fixture.Dir, Options{}); !errors.Is(err, ErrEmptyWorld) {
		t.Errorf("err = %v, want ErrEmptyWorld", err)
	}

	limits := coord.Edges{N: 1000, E: 2000, S: 2000, W: 1000}
	full := buildWorld(t, map[coord.Pair]byte{{}: 1})
	save(t, full)
	if _, err := Open(full.Dir, Options{Limits: &limits}); !errors.Is(err, ErrEmptyWorld) {
		t.Errorf("err with distant limits = %v, want ErrEmptyWorld", err)
	}

	if _, err := Open(t.TempDir(), Options{}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err without a region directory = %v", err)
	}
}

func TestEastNeighborRegionMissing(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{
		{X: 31, Z: 5}: 1,
		{X: 30, Z: 5}: 2,
	})
	save(t, fixture)
	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}

	r, err := w.LoadRegion(coord.Pair{}, testDecoder(t))
	if err != nil {
		t.Fatalf("LoadRegion: %v", err)
	}
	n, ok := r.Neighborhood(coord.Pair{X: 31, Z: 5})
	if !ok {
		t.Fatal("no neighbourhood for 31,5")
	}
	for _, d := range []Direction{North, East, South} {
		if *n.Side(d) != *chunk.Empty() {
			t.Errorf("%v neighbour is not an all-zero chunk", d)
		}
	}
	if n.Side(West).Biome(0, 0) != 2 {
		t.Errorf("west neighbour biome = %d, want 2", n.Side(West).Biome(0, 0))
	}

	// Missing neighbours do not share storage.
	n.Side(East).Blocks[0] = 7
	if n.Side(North).Blocks[0] != 0 || n.Side(South).Blocks[0] != 0 || chunk.Empty().Blocks[0] != 0 {
		t.Error("writing to one missing neighbour changed another")
	}
	again, _ := r.Neighborhood(coord.Pair{X: 31, Z: 5})
	if again.Side(East).Blocks[0] != 0 {
		t.Error("missing neighbour kept a write from an earlier neighbourhood")
	}
	if n.Center.Biome(3, 3) != 1 || n.Coord != (coord.Pair{X: 31, Z: 5}) {
		t.Errorf("centre = %v biome %d", n.Coord, n.Center.Biome(3, 3))
	}
}

func TestNeighborsAcrossRegions(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{
		{X: 0, Z: 0}:   1,
		{X: 31, Z: 0}:  4,
		{X: 0, Z: 31}:  7,
		{X: -1, Z: 0}:  2,
		{X: -27, Z: 5}: 9,
		{X: 0, Z: -1}:  3,
		{X: 32, Z: 0}:  5,
		{X: 33, Z: 0}:  8,
		{X: 0, Z: 32}:  6,
	})
	save(t, fixture)
	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	dec := testDecoder(t)

	r, err := w.LoadRegion(coord.Pair{}, dec)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]coord.Pair{{X: 0, Z: 0}, {X: 31, Z: 0}, {X: 0, Z: 31}}, r.Chunks()); diff != "" {
		t.Errorf("Chunks (-want +got):\n%s", diff)
	}
	if len(r.strips[West]) != 1 || len(r.strips[East]) != 1 {
		t.Errorf("strips hold %d west and %d east chunks, want one each", len(r.strips[West]), len(r.strips[East]))
	}

	biomes := func(n Neighborhood) [4]uint8 {
		var out [4]uint8
		for d, side := range n.Sides {
			out[d] = side.Biome(0, 0)
		}
		return out
	}
	tests := []struct {
		local coord.Pair
		want  [4]uint8 // north, east, south, west
	}{
		{coord.Pair{X: 0, Z: 0}, [4]uint8{3, 0, 0, 2}},
		{coord.Pair{X: 31, Z: 0}, [4]uint8{0, 5, 0, 0}},
		{coord.Pair{X: 0, Z: 31}, [4]uint8{0, 0, 6, 0}},
	}
	for _, tt := range tests {
		n, ok := r.Neighborhood(tt.local)
		if !ok {
			t.Fatalf("no chunk at %v", tt.local)
		}
		if diff := cmp.Diff(tt.want, biomes(n)); diff != "" {
			t.Errorf("neighbours of %v (-want +got):\n%s", tt.local, diff)
		}
	}
	if _, ok := r.Neighborhood(coord.Pair{X: 5, Z: 5}); ok {
		t.Error("neighbourhood of a missing chunk")
	}

	n, ok, err := w.Assemble(coord.Pair{X: -1, Z: 0}, dec)
	if err != nil || !ok {
		t.Fatalf("Assemble = %v, %v", ok, err)
	}
	if diff := cmp.Diff([4]uint8{0, 1, 0, 0}, biomes(n)); diff != "" {
		t.Errorf("neighbours of -1,0 (-want +got):\n%s", diff)
	}
	if n.Center.Biome(0, 0) != 2 {
		t.Errorf("centre biome = %d", n.Center.Biome(0, 0))
	}
	if _, ok, err := w.Assemble(coord.Pair{X: 7, Z: 7}, dec); ok || err != nil {
		t.Errorf("Assemble of an empty slot = %v, %v", ok, err)
	}
}

func TestLoadRegionMissingFile(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{{}: 1})
	save(t, fixture)
	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.LoadRegion(coord.Pair{X: 7, Z: 7}, testDecoder(t)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadRegionSkipsBrokenChunks(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{{}: 1})
	r := fixture.Region(coord.Pair{})
	r.PutRaw(1, 0, 1, []byte{1, 2, 3})
	r.PutLength(3, 0, 0, []byte{1})
	bad := testworld.NewChunk(coord.Pair{X: 2})
	bad.Level.Sections = []testworld.Section{testworld.Fill(0, []string{"minecraft:nope"}, 4, func(x, y, z int) int { return 0 })}
	if err := r.Put(2, 0, bad); err != nil {
		t.Fatal(err)
	}
	absent := testworld.NewChunk(coord.Pair{X: 4})
	absent.Level = nil
	if err := r.Put(4, 0, absent); err != nil {
		t.Fatal(err)
	}
	save(t, fixture)

	var logs bytes.Buffer
	w, err := Open(fixture.Dir, Options{Logger: quietLogger(&logs)})
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := w.LoadRegion(coord.Pair{}, testDecoder(t))
	if err != nil {
		t.Fatalf("LoadRegion: %v", err)
	}
	if diff := cmp.Diff([]coord.Pair{{}}, loaded.Chunks()); diff != "" {
		t.Errorf("Chunks (-want +got):\n%s", diff)
	}
	if n := strings.Count(logs.String(), "skipping chunk"); n != 3 {
		t.Errorf("logged %d skipped chunks, want 3:\n%s", n, logs.String())
	}
}

func TestLoadRegionAbortsOnCorruptStream(t *testing.T) {
	fixture := buildWorld(t, map[coord.Pair]byte{{}: 1})
	fixture.Region(coord.Pair{}).PutRaw(1, 0, 2, []byte{0xff, 0xff, 0xff})
	save(t, fixture)

	w, err := Open(fixture.Dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.LoadRegion(coord.Pair{}, testDecoder(t)); err == nil {
		t.Error("expected corrupt compressed data to abort the region")
	}
}

func TestReadLevel(t *testing.T) {
	fixture := testworld.NewWorld(t.TempDir())
	played := time.Date(2020, 5, 17, 12, 30, 0, 0, time.UTC)
	err := fixture.WriteLevel(testworld.LevelData{
		LevelName:   "Cartography",
		DataVersion: 2230,
		Version:     testworld.Version{ID: 2230, Name: "1.15.2"},
		SpawnX:      -120,
		SpawnY:      64,
		SpawnZ:      300,
		LastPlayed:  played.UnixMilli(),
	})
	if err != nil {
		t.Fatal(err)
	}

	level, err := ReadLevel(fixture.Dir)
	if err != nil {
		t.Fatal(err)
	}
	want := &Level{
		Name:        "Cartography",
		DataVersion: 2230,
		VersionName: "1.15.2",
		Spawn:       coord.Pair{X: -120, Z: 300},
		SpawnY:      64,
		LastPlayed:  played,
	}
	if diff := cmp.Diff(want, level, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("Level (-want +got):\n%s", diff)
	}

	if _, err := ReadLevel(t.TempDir()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing level.dat: %v", err)
	}
}
