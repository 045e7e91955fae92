// Copyright 2020 gorse Project Authors
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

package parallel

import (
	"context"
	"errors"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParallel(t *testing.T) {
	a := lo.Range(10000)
	b := make([]int, len(a))
	workerIds := make([]int, len(a))
	// multiple threads
	err := Parallel(context.Background(), len(a), 4, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, 4, mapset.NewSet(workerIds...).Cardinality())
	// single thread
	err = Parallel(context.Background(), len(a), 1, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, mapset.NewSet(workerIds...).Cardinality())
}

func TestParallel_Error(t *testing.T) {
	target := errors.New("job failed")
	err := Parallel(context.Background(), 100, 4, func(_, jobId int) error {
		if jobId == 42 {
			return target
		}
		return nil
	})
	assert.ErrorIs(t, err, target)
	err = Parallel(context.Background(), 100, 1, func(_, jobId int) error {
		if jobId == 42 {
			return target
		}
		return nil
	})
	assert.ErrorIs(t, err, target)
}

func TestParallel_Panic(t *testing.T) {
	err := Parallel(context.Background(), 10, 4, func(_, jobId int) error {
		if jobId == 3 {
			panic("boom")
		}
		return nil
	})
	assert.Error(t, err)
}

func TestParallel_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Parallel(ctx, 100, 4, func(_, _ int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	err = Parallel(ctx, 100, 1, func(_, _ int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
