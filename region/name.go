package region

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/astei/anvilmap/coord"
)

var fileNamePattern = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// FileName returns the base name of the region file for container c.
func FileName(c coord.Pair) string {
	return fmt.Sprintf("r.%d.%d.mca", c.X, c.Z)
}

// ParseFileName extracts the container coordinates from a region file's
// base name. ok is false for anything that is not a region file.
func ParseFileName(name string) (c coord.Pair, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return coord.Pair{}, false
	}
	x, errX := strconv.Atoi(m[1])
	z, errZ := strconv.Atoi(m[2])
	if errX != nil || errZ != nil {
		return coord.Pair{}, false
	}
	return coord.Pair{X: x, Z: z}, true
}
