package world

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	mcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	"github.com/astei/anvilmap/coord"
)

// Level is a summary of a world's level.dat.
type Level struct {
	Name        string
	DataVersion int32
	VersionName string
	// Spawn is the spawn block; SpawnY its height.
	Spawn      coord.Pair
	SpawnY     int
	LastPlayed time.Time
}

type levelFile struct {
	Data struct {
		LevelName   string `nbt:"LevelName"`
		DataVersion int32  `nbt:"DataVersion"`
		Version     struct {
			ID   int32  `nbt:"Id"`
			Name string `nbt:"Name"`
		} `nbt:"Version"`
		SpawnX     int32 `nbt:"SpawnX"`
		SpawnY     int32 `nbt:"SpawnY"`
		SpawnZ     int32 `nbt:"SpawnZ"`
		LastPlayed int64 `nbt:"LastPlayed"`
	} `nbt:"Data"`
}

// ReadLevel reads the gzip-compressed level.dat in dir.
func ReadLevel(dir string) (*Level, error) {
	path := filepath.Join(dir, "level.dat")
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var level levelFile
	if err := mcnbt.Unmarshal(raw, &level); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	data := level.Data
	return &Level{
		Name:        data.LevelName,
		DataVersion: data.DataVersion,
		VersionName: data.Version.Name,
		Spawn:       coord.Pair{X: int(data.SpawnX), Z: int(data.SpawnZ)},
		SpawnY:      int(data.SpawnY),
		LastPlayed:  time.UnixMilli(data.LastPlayed),
	}, nil
}
