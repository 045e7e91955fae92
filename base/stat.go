// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// DropNaN returns a copy of values without NaN.
func DropNaN(values []float64) []float64 {
	return lo.Filter(values, func(v float64, _ int) bool {
		return !math.IsNaN(v)
	})
}

// Quantile returns the q-th quantile of values, interpolating linearly between the
// two closest ranks:
//
//	pos = q * (n - 1)
//	Q(q) = x[floor(pos)] + (pos - floor(pos)) * (x[floor(pos)+1] - x[floor(pos)])
//
// NaN values are ignored. It returns NaN if no value remains.
func Quantile(values []float64, q float64) float64 {
	sorted := DropNaN(values)
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	q = math.Min(math.Max(q, 0), 1)
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Mode returns the most frequent non-empty string. Ties are broken by the
// lexically smallest value. The second return value is false if there is no
// non-empty value.
func Mode(values []string) (string, bool) {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := lo.Keys(counts)
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}
