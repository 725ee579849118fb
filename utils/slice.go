package utils

// UniqueInt64 removes duplicate values, keeping first-seen order.
func UniqueInt64(slice []int64) []int64 {
	keys := make(map[int64]bool, len(slice))
	list := make([]int64, 0, len(slice))
	for _, entry := range slice {
		if !keys[entry] {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
