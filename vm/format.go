package vm

import "strconv"

// itoa renders an int64 the way IPRINT writes it: plain decimal.
func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ftoa renders a float64 the way DPRINT writes it: the shortest
// decimal that round-trips, with no forced trailing zeros (matching
// the original interpreter's iostream default formatting, e.g. 1.5
// prints as "1.5" and 7.0 prints as "7").
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
