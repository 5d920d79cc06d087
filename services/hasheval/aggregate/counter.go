// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

// observation is one computed distance, keyed by the counter it feeds.
type observation struct {
	key      int
	distance int
}

// tally counts the zero-distance observations per key. The result only
// depends on the multiset of observations, not on their order.
func tally(keys int, obs []observation) []int {
	counts := make([]int, keys)
	for _, o := range obs {
		if o.distance == 0 {
			counts[o.key]++
		}
	}
	return counts
}

// percent returns num/den*100 clamped to [0, 100], or 0 when den is 0.
func percent(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	p := float64(num) / float64(den) * 100
	if p > 100 {
		return 100
	}
	return p
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
