package utils

import "hash/fnv"

// PickColor maps key onto palette. The same key always gets the same entry.
func PickColor(key string, palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}
