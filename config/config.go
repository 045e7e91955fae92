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

package config

import (
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for vgsales.
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Predict  PredictConfig  `mapstructure:"predict"`
	Server   ServerConfig   `mapstructure:"server"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// DatasetConfig is the configuration for the sales dataset.
type DatasetConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// PredictConfig is the configuration for the sales predictor.
type PredictConfig struct {
	NumTrees        int           `mapstructure:"n_trees" validate:"gt=0"`
	RandomState     int64         `mapstructure:"random_state"`
	TestSize        float64       `mapstructure:"test_size" validate:"gt=0,lt=1"`
	MaxDepth        int           `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int           `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int           `mapstructure:"min_samples_leaf" validate:"gte=1"`
	HitQuantile     float64       `mapstructure:"hit_quantile" validate:"gte=0,lte=1"`
	NumJobs         int           `mapstructure:"n_jobs" validate:"gt=0"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	CacheSize       int           `mapstructure:"cache_size" validate:"gt=0"`
	PricePerUnit    float64       `mapstructure:"price_per_unit" validate:"gte=0"`
	DevelopmentCost float64       `mapstructure:"development_cost" validate:"gte=0"`
}

// ServerConfig is the configuration for the JSON API.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	DefaultN       int      `mapstructure:"default_n" validate:"gt=0"`
	HistogramBins  int      `mapstructure:"histogram_bins" validate:"gt=0"`
	MaxN           int      `mapstructure:"max_n" validate:"gtefield=DefaultN"`
	MaxBins        int      `mapstructure:"max_bins" validate:"gtefield=HistogramBins"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RealtimeConfig is the configuration for the simulated live sales feed.
type RealtimeConfig struct {
	MaxIncrement float64 `mapstructure:"max_increment" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Path: "vgsales.csv",
		},
		Predict: PredictConfig{
			NumTrees:        100,
			RandomState:     42,
			TestSize:        0.2,
			MaxDepth:        0,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			HitQuantile:     0.75,
			NumJobs:         runtime.NumCPU(),
			CacheTTL:        0,
			CacheSize:       16,
			PricePerUnit:    60,
			DevelopmentCost: 500000,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			DefaultN:       10,
			HistogramBins:  40,
			MaxN:           1000,
			MaxBins:        1000,
			AllowedOrigins: []string{"*"},
		},
		Realtime: RealtimeConfig{
			MaxIncrement: 0.05,
		},
		Tracing: TracingConfig{
			Exporter:     "otlp",
			Sampler:      "always",
			SamplerRatio: 1,
		},
	}
}

func (config *Config) LoadDefaultIfNil() *Config {
	if config == nil {
		return GetDefaultConfig()
	}
	return config
}

// Validate checks value ranges of the configuration.
func (config *Config) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	viper.SetDefault("dataset.path", defaultConfig.Dataset.Path)
	// [predict]
	viper.SetDefault("predict.n_trees", defaultConfig.Predict.NumTrees)
	viper.SetDefault("predict.random_state", defaultConfig.Predict.RandomState)
	viper.SetDefault("predict.test_size", defaultConfig.Predict.TestSize)
	viper.SetDefault("predict.max_depth", defaultConfig.Predict.MaxDepth)
	viper.SetDefault("predict.min_samples_split", defaultConfig.Predict.MinSamplesSplit)
	viper.SetDefault("predict.min_samples_leaf", defaultConfig.Predict.MinSamplesLeaf)
	viper.SetDefault("predict.hit_quantile", defaultConfig.Predict.HitQuantile)
	viper.SetDefault("predict.n_jobs", defaultConfig.Predict.NumJobs)
	viper.SetDefault("predict.cache_ttl", defaultConfig.Predict.CacheTTL)
	viper.SetDefault("predict.cache_size", defaultConfig.Predict.CacheSize)
	viper.SetDefault("predict.price_per_unit", defaultConfig.Predict.PricePerUnit)
	viper.SetDefault("predict.development_cost", defaultConfig.Predict.DevelopmentCost)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	viper.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	viper.SetDefault("server.histogram_bins", defaultConfig.Server.HistogramBins)
	viper.SetDefault("server.max_n", defaultConfig.Server.MaxN)
	viper.SetDefault("server.max_bins", defaultConfig.Server.MaxBins)
	viper.SetDefault("server.allowed_origins", defaultConfig.Server.AllowedOrigins)
	// [realtime]
	viper.SetDefault("realtime.max_increment", defaultConfig.Realtime.MaxIncrement)
	// [tracing]
	viper.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	viper.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	viper.SetDefault("tracing.sampler_ratio", defaultConfig.Tracing.SamplerRatio)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"dataset.path", "VGSALES_DATASET_PATH"},
	{"predict.n_trees", "VGSALES_PREDICT_N_TREES"},
	{"predict.random_state", "VGSALES_PREDICT_RANDOM_STATE"},
	{"predict.n_jobs", "VGSALES_PREDICT_N_JOBS"},
	{"predict.cache_ttl", "VGSALES_PREDICT_CACHE_TTL"},
	{"server.host", "VGSALES_SERVER_HOST"},
	{"server.port", "VGSALES_SERVER_PORT"},
	{"realtime.max_increment", "VGSALES_REALTIME_MAX_INCREMENT"},
	{"tracing.enable_tracing", "VGSALES_TRACING_ENABLE"},
	{"tracing.exporter", "VGSALES_TRACING_EXPORTER"},
	{"tracing.collector_endpoint", "VGSALES_TRACING_COLLECTOR_ENDPOINT"},
}

// LoadConfig loads configuration from a TOML file. An empty path loads defaults.
// Environment variables override values in the file.
func LoadConfig(path string) (*Config, error) {
	viper.Reset()
	setDefault()
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Trace(err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}
