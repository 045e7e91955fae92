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


package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/cmd/version"
	"github.com/gorse-io/vgsales/config"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "vgsales",
		Short:         "Video game sales dashboard and sales predictor.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.SetLogger(cmd.Flags(), debug)
			otel.SetErrorHandler(log.GetErrorHandler())
		},
	}
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("dataset", "", "path of the sales CSV (overrides the configuration)")
	rootCommand.AddCommand(
		newServeCommand(),
		newSummaryCommand(),
		newPredictCommand(),
		newExportCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information.",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
			},
		},
	)
	return rootCommand
}

// loadConfig loads the configuration file named by --config and applies --dataset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Debug("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cmd.Flags().Changed("dataset") {
		conf.Dataset.Path, _ = cmd.Flags().GetString("dataset")
	}
	return conf, nil
}

// setupTracing installs the configured tracer provider. The returned function
// flushes pending spans.
func setupTracing(ctx context.Context, conf *config.Config, service string) (func(), error) {
	if !conf.Tracing.EnableTracing {
		return func() {}, nil
	}
	tp, err := conf.Tracing.NewTracerProvider(ctx, service)
	if err != nil {
		return nil, errors.Trace(err)
	}
	otel.SetTracerProvider(tp)
	log.Logger().Info("enable tracing",
		zap.String("exporter", conf.Tracing.Exporter),
		zap.String("collector_endpoint", conf.Tracing.CollectorEndpoint))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}, nil
}

func addQueryFlags(flagSet *pflag.FlagSet) {
	flagSet.String("search", "", "keep games whose name contains the string")
	flagSet.StringSlice("genre", nil, "keep games of the genres")
	flagSet.StringSlice("platform", nil, "keep games of the platforms")
	flagSet.Int("year-from", 0, "first release year")
	flagSet.Int("year-to", 0, "last release year")
	flagSet.String("expr", "", "boolean expression over game")
}

func parseQuery(flagSet *pflag.FlagSet) dataset.Query {
	var q dataset.Query
	q.Search, _ = flagSet.GetString("search")
	q.Genres, _ = flagSet.GetStringSlice("genre")
	q.Platforms, _ = flagSet.GetStringSlice("platform")
	q.YearFrom, _ = flagSet.GetInt("year-from")
	q.YearTo, _ = flagSet.GetInt("year-to")
	q.Expr, _ = flagSet.GetString("expr")
	return q
}

// loadDataset loads the configured dataset and applies the query flags.
func loadDataset(cmd *cobra.Command, conf *config.Config) (full, filtered *dataset.Dataset, err error) {
	full, err = dataset.Load(conf.Dataset.Path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	filtered, err = full.Filter(parseQuery(cmd.Flags()))
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return full, filtered, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
