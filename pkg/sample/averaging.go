package sample

// Average reduces records to the mean of each consecutive group of factor
// records. An incomplete trailing group is dropped. A factor below 2 copies the
// records unchanged.
// Destination-based: reuses dst when its capacity suffices.
func Average(dst []Record, records []Record, factor int) []Record {
	if factor < 2 {
		factor = 1
	}

	n := len(records) / factor
	if dst != nil && cap(dst) >= n {
		dst = dst[:0]
	} else {
		dst = make([]Record, 0, n)
	}

	for i := 0; i+factor <= len(records); i += factor {
		var sum uint32
		for _, r := range records[i : i+factor] {
			sum += uint32(r)
		}
		dst = append(dst, Record(sum/uint32(factor)))
	}

	return dst
}
