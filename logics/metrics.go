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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vgsales",
		Subsystem: "logics",
		Name:      "fit_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vgsales",
		Subsystem: "logics",
		Name:      "predictions_total",
	}, []string{"status"})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vgsales",
		Subsystem: "logics",
		Name:      "model_cache_hits_total",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vgsales",
		Subsystem: "logics",
		Name:      "model_cache_misses_total",
	})
	TrainingScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vgsales",
		Subsystem: "logics",
		Name:      "holdout_score",
	}, []string{"metric"})
)
