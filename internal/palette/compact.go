package palette

// EffectiveLength returns the number of leading entries that remain after
// trimming the trailing run of entries identical to the final one. The run
// itself keeps one representative, so the result is always in [1, 256]: a
// table of 256 distinct entries returns 256, a table of one repeated entry
// returns 1.
func EffectiveLength(t *Table) int {
	last := t[255]
	for i := 254; i >= 0; i-- {
		if t[i] != last {
			return i + 2
		}
	}
	return 1
}
