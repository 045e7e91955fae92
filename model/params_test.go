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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_GetInt(t *testing.T) {
	p := Params{NTrees: 100, RandomState: int64(42), MaxDepth: "deep"}
	assert.Equal(t, 100, p.GetInt(NTrees, -1))
	assert.Equal(t, 42, p.GetInt(RandomState, -1))
	assert.Equal(t, -1, p.GetInt(MaxDepth, -1))
	assert.Equal(t, -1, p.GetInt(MinSamplesLeaf, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{RandomState: 42, NTrees: 1.5}
	assert.Equal(t, int64(42), p.GetInt64(RandomState, -1))
	assert.Equal(t, int64(-1), p.GetInt64(NTrees, -1))
	assert.Equal(t, int64(-1), p.GetInt64(MaxDepth, -1))
}

func TestParams_Copy(t *testing.T) {
	a := Params{NTrees: 100}
	b := a.Copy()
	b[NTrees] = 10
	assert.Equal(t, 100, a.GetInt(NTrees, 0))
	assert.Equal(t, 10, b.GetInt(NTrees, 0))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{NTrees: 100, RandomState: 42}
	b := a.Overwrite(Params{NTrees: 10, MaxDepth: 5})
	assert.Equal(t, Params{NTrees: 10, RandomState: 42, MaxDepth: 5}, b)
	assert.Equal(t, Params{NTrees: 100, RandomState: 42}, a)
	assert.Equal(t, `{"NTrees":100,"RandomState":42}`, a.ToString())
}

func TestBaseModel_SetParams(t *testing.T) {
	var a, b BaseModel
	a.SetParams(Params{RandomState: 7})
	b.SetParams(Params{RandomState: 7})
	assert.Equal(t, a.GetRandomGenerator().Int63(), b.GetRandomGenerator().Int63())
	assert.Equal(t, Params{RandomState: 7}, a.GetParams())
}

func TestFitConfig(t *testing.T) {
	var config *FitConfig
	config = config.LoadDefaultIfNil()
	assert.Equal(t, 1, config.Jobs)
	config.SetJobs(4).SetVerbose(1)
	assert.Equal(t, 4, config.Jobs)
	assert.Equal(t, 1, config.Verbose)
}
