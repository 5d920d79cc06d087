// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

// Code returns the display code of attack index i: A..Z, then AA, AB, ...
//
// The mapping is a bijection from non-negative indices to non-empty
// upper-case strings (bijective base-26). Negative indices return "".
func Code(i int) string {
	if i < 0 {
		return ""
	}
	var buf [16]byte
	pos := len(buf)
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		pos--
		buf[pos] = byte('A' + (n-1)%26)
	}
	return string(buf[pos:])
}

// Codes returns the display codes of attacks, in order.
func Codes(attacks []Attack) []string {
	codes := make([]string, len(attacks))
	for i := range attacks {
		codes[i] = Code(i)
	}
	return codes
}
