// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package lexer

import "strconv"

// parseUint64Saturating parses a run of decimal digits into an int64,
// reporting overflow instead of wrapping, since the lexer only guards
// unsigned digit runs (the sign is a separate token handled by the parser).
func parseUint64Saturating(text string) (value int64, overflowed bool) {
	u, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, true
	}
	if u > 1<<63-1 {
		return 0, true
	}
	return int64(u), false
}

func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
