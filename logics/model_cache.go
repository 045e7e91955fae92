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

package logics

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/gorse-io/vgsales/model"
	"github.com/jellydator/ttlcache/v3"
	"github.com/samber/lo"
)

// ModelCache keeps fitted sessions for identical training inputs.
type ModelCache struct {
	cache *ttlcache.Cache[uint64, *Session]
}

func NewModelCache(ttl time.Duration, capacity int) *ModelCache {
	return &ModelCache{
		cache: ttlcache.New[uint64, *Session](
			ttlcache.WithTTL[uint64, *Session](ttl),
			ttlcache.WithCapacity[uint64, *Session](uint64(capacity)),
		),
	}
}

func (c *ModelCache) Get(key uint64) (*Session, bool) {
	item := c.cache.Get(key)
	if item == nil {
		CacheMisses.Inc()
		return nil, false
	}
	CacheHits.Inc()
	return item.Value(), true
}

func (c *ModelCache) Set(key uint64, session *Session) {
	c.cache.Set(key, session, ttlcache.DefaultTTL)
}

func (c *ModelCache) Len() int {
	return c.cache.Len()
}

// cacheKey digests everything a fitted session depends on.
func cacheKey(table *dataset.EncodingTable, ts *TrainingSet, threshold float64, params model.Params) uint64 {
	digest := xxhash.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = digest.Write(buf[:])
	}
	for _, column := range dataset.CategoricalColumns {
		encoder, _ := table.Encoder(column)
		for _, class := range encoder.Classes() {
			_, _ = digest.WriteString(class)
			_, _ = digest.Write([]byte{0})
		}
		_, _ = digest.Write([]byte{1})
	}
	for i, row := range ts.X {
		for _, v := range row {
			writeFloat(v)
		}
		writeFloat(ts.Y[i])
	}
	writeFloat(threshold)
	keys := lo.Keys(params)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		_, _ = digest.WriteString(string(key))
		_, _ = digest.WriteString(fmt.Sprint(params[key]))
	}
	return digest.Sum64()
}
