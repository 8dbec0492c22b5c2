package model

import "hash/fnv"

// ColorIndex hashes an id into one of n palette slots. Cosmetic only: the
// render layer uses it to pick a stable decorative color per node, it has no
// correctness implications.
func ColorIndex(id string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}
