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
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func TestRandomGenerator_UniformVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.UniformVector(1000, 1, 2)
	assert.False(t, floats.Min(vec) < 1)
	assert.False(t, floats.Max(vec) >= 2)
}

func TestRandomGenerator_Bootstrap(t *testing.T) {
	rng := NewRandomGenerator(0)
	sampled := rng.Bootstrap(100)
	assert.Len(t, sampled, 100)
	for _, i := range sampled {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 100)
	}
	// same seed, same draw
	assert.Equal(t, sampled, NewRandomGenerator(0).Bootstrap(100))
}

func TestRandomGenerator_Seeds(t *testing.T) {
	a := NewRandomGenerator(42).Seeds(10)
	b := NewRandomGenerator(42).Seeds(10)
	assert.Equal(t, a, b)
	assert.Equal(t, 10, mapset.NewSet(a...).Cardinality())
}

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
	}
	assert.ElementsMatch(t, []int{0, 1, 2}, rng.Sample(0, 3, 5))
}
