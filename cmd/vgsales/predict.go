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
	"fmt"
	"io"

	"github.com/gorse-io/vgsales/logics"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// progressTracker draws fitting progress on a terminal.
type progressTracker struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressTracker(w io.Writer) *progressTracker {
	return &progressTracker{w: w}
}

func (t *progressTracker) Start(total int) {
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(t.w),
		progressbar.OptionSetDescription("Fitting random forest"),
		progressbar.OptionShowCount())
}

func (t *progressTracker) Update(done int) {
	_ = t.bar.Set(done)
}

func (t *progressTracker) Finish() {
	_ = t.bar.Finish()
	fmt.Fprintln(t.w)
}

func newPredictCommand() *cobra.Command {
	predictCommand := &cobra.Command{
		Use:   "predict <name>",
		Short: "Predict global sales, hit probability and profit of a game.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return errors.Trace(err)
			}
			shutdownTracing, err := setupTracing(cmd.Context(), conf, "vgsales-cli")
			if err != nil {
				return errors.Trace(err)
			}
			defer shutdownTracing()
			full, filtered, err := loadDataset(cmd, conf)
			if err != nil {
				return errors.Trace(err)
			}
			price, cost := conf.Predict.PricePerUnit, conf.Predict.DevelopmentCost
			if cmd.Flags().Changed("price") {
				price, _ = cmd.Flags().GetFloat64("price")
			}
			if cmd.Flags().Changed("cost") {
				cost, _ = cmd.Flags().GetFloat64("cost")
			}
			predictor := logics.NewPredictor(conf.Predict)
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				predictor.SetTracker(newProgressTracker(cmd.ErrOrStderr()))
			}
			result, err := predictor.Predict(cmd.Context(), full, args[0], price, cost,
				logics.WithCandidates(filtered))
			if err != nil {
				return errors.Trace(err)
			}
			return renderTable(cmd.OutOrStdout(), []string{"field", "value"}, [][]string{
				{"Name", result.Game.Name},
				{"Platform", result.Game.Platform},
				{"Genre", result.Game.Genre},
				{"Publisher", result.Game.Publisher},
				{"Actual global sales (M)", formatFloat(result.Game.GlobalSales)},
				{"Predicted global sales (M)", formatFloat(result.PredictedGlobalSales)},
				{"Hit threshold (M)", formatFloat(result.Threshold)},
				{"Hit probability", fmt.Sprintf("%.1f%%", result.HitProbability*100)},
				{"Status", string(result.Status)},
				{"Revenue", formatFloat(result.Revenue)},
				{"Profit", formatFloat(result.Profit)},
			})
		},
	}
	predictCommand.Flags().Float64("price", 0, "price per unit (defaults to the configuration)")
	predictCommand.Flags().Float64("cost", 0, "development cost (defaults to the configuration)")
	predictCommand.Flags().BoolP("quiet", "q", false, "hide the progress bar")
	addQueryFlags(predictCommand.Flags())
	return predictCommand
}
