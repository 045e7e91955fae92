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
	"strconv"

	"github.com/gorse-io/vgsales/dataset"
	"github.com/gorse-io/vgsales/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newSummaryCommand() *cobra.Command {
	summaryCommand := &cobra.Command{
		Use:   "summary",
		Short: "Print the overview, the leaderboard and regional sales.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return errors.Trace(err)
			}
			_, ds, err := loadDataset(cmd, conf)
			if err != nil {
				return errors.Trace(err)
			}
			n, _ := cmd.Flags().GetInt("top")
			if n <= 0 {
				n = conf.Server.DefaultN
			}
			out := cmd.OutOrStdout()

			overview := logics.Overview(ds)
			if err = renderTable(out, []string{"field", "value"}, [][]string{
				{"Total games", strconv.Itoa(overview.TotalGames)},
				{"Total sales (M)", formatFloat(overview.TotalSales)},
				{"Top publisher", overview.TopPublisher},
				{"Top platform", overview.TopPlatform},
				{"Top genre", overview.TopGenre},
			}); err != nil {
				return errors.Trace(err)
			}

			if err = renderTable(out, []string{"#", "name", "platform", "year", "genre", "publisher", "global sales"},
				lo.Map(logics.TopGames(ds, n), func(r dataset.GameRecord, i int) []string {
					return []string{
						strconv.Itoa(i + 1),
						r.Name,
						r.Platform,
						strconv.Itoa(r.Year),
						r.Genre,
						r.Publisher,
						formatFloat(r.GlobalSales),
					}
				})); err != nil {
				return errors.Trace(err)
			}

			return renderTable(out, []string{"region", "sales"},
				lo.Map(logics.RegionalSales(ds), func(total logics.RegionTotal, _ int) []string {
					return []string{string(total.Region), formatFloat(total.Sales)}
				}))
		},
	}
	summaryCommand.Flags().IntP("top", "n", 0, "number of games in the leaderboard")
	addQueryFlags(summaryCommand.Flags())
	return summaryCommand
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	if err := table.Bulk(rows); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
