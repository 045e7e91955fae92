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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/config"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/gorse-io/vgsales/model"
	"github.com/gorse-io/vgsales/model/forest"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/gorse-io/vgsales/logics")

type Status string

const (
	Hit  Status = "Hit"
	Flop Status = "Flop"
)

type PredictionResult struct {
	Game                 dataset.GameRecord `json:"game"`
	PredictedGlobalSales float64            `json:"predicted_global_sales"`
	HitProbability       float64            `json:"hit_probability"`
	Status               Status             `json:"status"`
	Threshold            float64            `json:"threshold"`
	// Revenue multiplies sales in millions of units by the unit price without
	// rescaling, so it is in millions of currency units.
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Session is a fitted model together with the encoders and hit threshold of the
// dataset it was fitted on. It is safe for concurrent use.
type Session struct {
	table     *dataset.EncodingTable
	forest    *forest.RandomForest
	threshold float64
	score     forest.Score
	numTrain  int
	numTest   int
	skipped   int
}

// Predict predicts the global sales of a record and derives success and profit.
func (s *Session) Predict(record dataset.GameRecord, pricePerUnit, developmentCost float64) (*PredictionResult, error) {
	features, err := EncodeFeatures(s.table, record)
	if err != nil {
		return nil, errors.Trace(err)
	}
	predicted := s.forest.Predict(features)
	probability := HitProbability(predicted, s.threshold)
	status := Flop
	if probability >= 1 {
		status = Hit
	}
	revenue := predicted * pricePerUnit
	return &PredictionResult{
		Game:                 record,
		PredictedGlobalSales: predicted,
		HitProbability:       probability,
		Status:               status,
		Threshold:            s.threshold,
		Revenue:              revenue,
		Profit:               revenue - developmentCost,
	}, nil
}

// HitProbability is predicted/threshold clamped to [0, 1]. It is 0 if the
// threshold is not positive.
func HitProbability(predicted, threshold float64) float64 {
	if !(threshold > 0) || math.IsNaN(predicted) {
		return 0
	}
	return math.Min(math.Max(predicted/threshold, 0), 1)
}

// Score returns the evaluation on held out rows.
func (s *Session) Score() forest.Score {
	return s.score
}

func (s *Session) Threshold() float64 {
	return s.threshold
}

// FeatureImportance returns the importance of each feature in FeatureNames order.
func (s *Session) FeatureImportance() []FeatureImportance {
	return lo.Map(s.forest.FeatureImportance(), func(v float64, i int) FeatureImportance {
		return FeatureImportance{Feature: FeatureNames[i], Importance: v}
	})
}

// Counts returns the number of training, held out and skipped rows.
func (s *Session) Counts() (numTrain, numTest, skipped int) {
	return s.numTrain, s.numTest, s.skipped
}

// Predictor fits sales models on datasets.
type Predictor struct {
	config  config.PredictConfig
	cache   *ModelCache
	tracker model.Tracker
}

// NewPredictor creates a predictor. Fitted models are cached only if the cache
// TTL is positive.
func NewPredictor(cfg config.PredictConfig) *Predictor {
	p := &Predictor{config: cfg}
	if cfg.CacheTTL > 0 {
		p.cache = NewModelCache(cfg.CacheTTL, cfg.CacheSize)
	}
	return p
}

// SetTracker sets the receiver of tree fitting progress.
func (p *Predictor) SetTracker(tracker model.Tracker) *Predictor {
	p.tracker = tracker
	return p
}

// Params returns the hyper-parameters of the random forest.
func (p *Predictor) Params() model.Params {
	return model.Params{
		model.NTrees:          p.config.NumTrees,
		model.RandomState:     p.config.RandomState,
		model.MaxDepth:        p.config.MaxDepth,
		model.MinSamplesSplit: p.config.MinSamplesSplit,
		model.MinSamplesLeaf:  p.config.MinSamplesLeaf,
	}
}

// Fit encodes the full dataset, holds out a seeded test partition, fits the random
// forest on the rest and computes the hit threshold over all global sales.
func (p *Predictor) Fit(ctx context.Context, full *dataset.Dataset) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Predictor.Fit",
		trace.WithAttributes(attribute.Int("n_records", full.Count())))
	defer span.End()

	table := dataset.NewEncodingTable(full)
	ts, err := NewTrainingSet(table, full)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Trace(err)
	}
	if ts.Count() == 0 {
		err = fmt.Errorf("%w: no complete record to train on", ErrMissingFeature)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	threshold := base.Quantile(full.Column(dataset.ColumnGlobalSales), p.config.HitQuantile)
	if math.IsNaN(threshold) {
		threshold = 0
	}

	params := p.Params()
	var key uint64
	if p.cache != nil {
		key = cacheKey(table, ts, threshold, params)
		if session, ok := p.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return session, nil
		}
	}

	start := time.Now()
	trainSet, testSet := ts.Split(p.config.TestSize, p.config.RandomState)
	rf := forest.NewRandomForest(params)
	fitConfig := model.NewFitConfig().SetJobs(p.config.NumJobs).SetTracker(p.tracker)
	if err = rf.Fit(ctx, trainSet.X, trainSet.Y, fitConfig); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Trace(err)
	}
	session := &Session{
		table:     table,
		forest:    rf,
		threshold: threshold,
		score:     forest.Evaluate(rf, testSet.X, testSet.Y),
		numTrain:  trainSet.Count(),
		numTest:   testSet.Count(),
		skipped:   ts.Skipped,
	}
	FitSeconds.Observe(time.Since(start).Seconds())
	TrainingScore.WithLabelValues("rmse").Set(session.score.RMSE)
	TrainingScore.WithLabelValues("mae").Set(session.score.MAE)
	TrainingScore.WithLabelValues("r2").Set(session.score.R2)
	fields := append([]zap.Field{
		zap.Int("n_train", session.numTrain),
		zap.Int("n_test", session.numTest),
		zap.Int("n_skipped", session.skipped),
		zap.Float64("threshold", threshold),
		zap.Duration("fit_time", time.Since(start)),
	}, session.score.ZapFields()...)
	log.Logger().Info("fit sales predictor", fields...)

	if p.cache != nil {
		p.cache.Set(key, session)
	}
	return session, nil
}

type predictOptions struct {
	candidates *dataset.Dataset
}

type PredictOption func(*predictOptions)

// WithCandidates looks the target up in candidates instead of the full dataset.
// The model and the encoders still come from the full dataset.
func WithCandidates(candidates *dataset.Dataset) PredictOption {
	return func(o *predictOptions) {
		o.candidates = candidates
	}
}

// Predict fits a model on the full dataset and predicts the first game named
// targetName.
func (p *Predictor) Predict(ctx context.Context, full *dataset.Dataset, targetName string,
	pricePerUnit, developmentCost float64, opts ...PredictOption) (*PredictionResult, error) {
	options := predictOptions{candidates: full}
	for _, opt := range opts {
		opt(&options)
	}
	ctx, span := tracer.Start(ctx, "Predictor.Predict",
		trace.WithAttributes(attribute.String("name", targetName)))
	defer span.End()

	record, _, ok := options.candidates.Find(targetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, targetName)
	}
	session, err := p.Fit(ctx, full)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result, err := session.Predict(record, pricePerUnit, developmentCost)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Trace(err)
	}
	PredictionsTotal.WithLabelValues(string(result.Status)).Inc()
	log.Logger().Debug("predict sales",
		zap.String("name", targetName),
		zap.Float64("predicted_global_sales", result.PredictedGlobalSales),
		zap.Float64("hit_probability", result.HitProbability),
		zap.String("status", string(result.Status)))
	return result, nil
}
