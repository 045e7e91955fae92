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
	"math"
	"sort"

	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/common/heap"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type OverviewStats struct {
	TotalGames   int     `json:"total_games"`
	TotalSales   float64 `json:"total_sales"`
	TopPublisher string  `json:"top_publisher"`
	TopPlatform  string  `json:"top_platform"`
	TopGenre     string  `json:"top_genre"`
}

// Overview summarizes a dataset. Top values are ranked by summed global sales.
func Overview(ds *dataset.Dataset) OverviewStats {
	stats := OverviewStats{
		TotalGames: ds.Count(),
		TotalSales: nanSum(ds.Column(dataset.ColumnGlobalSales)),
	}
	if totals := groupSales(ds, dataset.ColumnPublisher); len(totals) > 0 {
		stats.TopPublisher = totals[0].Key
	}
	if totals := groupSales(ds, dataset.ColumnPlatform); len(totals) > 0 {
		stats.TopPlatform = totals[0].Key
	}
	if totals := groupSales(ds, dataset.ColumnGenre); len(totals) > 0 {
		stats.TopGenre = totals[0].Key
	}
	return stats
}

// TopGames returns the n best selling games. Games with equal sales keep dataset
// order and games without global sales are left out.
func TopGames(ds *dataset.Dataset, n int) []dataset.GameRecord {
	filter := heap.NewTopKFilter[dataset.GameRecord, float64](n)
	for _, record := range ds.Records() {
		if !math.IsNaN(record.GlobalSales) {
			filter.Push(record, record.GlobalSales)
		}
	}
	return filter.PopAllValues()
}

type RegionTotal struct {
	Region dataset.Region `json:"region"`
	Sales  float64        `json:"sales"`
}

// RegionalSales sums sales per region.
func RegionalSales(ds *dataset.Dataset) []RegionTotal {
	return lo.Map(dataset.Regions, func(region dataset.Region, _ int) RegionTotal {
		return RegionTotal{
			Region: region,
			Sales: nanSum(lo.Map(ds.Records(), func(r dataset.GameRecord, _ int) float64 {
				return r.RegionSales(region)
			})),
		}
	})
}

type GenreRegionTotal struct {
	Genre  string         `json:"genre"`
	Region dataset.Region `json:"region"`
	Sales  float64        `json:"sales"`
}

// GenreRegionSales sums sales per genre and region, ordered by genre then region.
func GenreRegionSales(ds *dataset.Dataset) []GenreRegionTotal {
	byGenre := lo.GroupBy(ds.Records(), func(r dataset.GameRecord) string {
		return r.Genre
	})
	genres := lo.Keys(byGenre)
	sort.Strings(genres)
	var totals []GenreRegionTotal
	for _, genre := range genres {
		for _, region := range dataset.Regions {
			totals = append(totals, GenreRegionTotal{
				Genre:  genre,
				Region: region,
				Sales: nanSum(lo.Map(byGenre[genre], func(r dataset.GameRecord, _ int) float64 {
					return r.RegionSales(region)
				})),
			})
		}
	}
	return totals
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// ReleasesPerYear counts games per release year in ascending year order.
func ReleasesPerYear(ds *dataset.Dataset) []YearCount {
	counts := lo.CountValuesBy(ds.Records(), func(r dataset.GameRecord) int {
		return r.Year
	})
	return lo.Map(ds.Years(), func(year int, _ int) YearCount {
		return YearCount{Year: year, Count: counts[year]}
	})
}

type SalesTotal struct {
	Key   string  `json:"key"`
	Sales float64 `json:"sales"`
	Share float64 `json:"share"`
}

// groupSales sums global sales per value of a categorical column, in descending
// order of sales and ascending order of value for ties.
func groupSales(ds *dataset.Dataset, column string) []SalesTotal {
	sums := make(map[string]float64)
	for _, record := range ds.Records() {
		key, _ := record.Category(column)
		if !math.IsNaN(record.GlobalSales) {
			sums[key] += record.GlobalSales
		} else if _, exist := sums[key]; !exist {
			sums[key] = 0
		}
	}
	total := nanSum(ds.Column(dataset.ColumnGlobalSales))
	totals := lo.MapToSlice(sums, func(key string, sales float64) SalesTotal {
		share := 0.0
		if total > 0 {
			share = sales / total
		}
		return SalesTotal{Key: key, Sales: sales, Share: share}
	})
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Sales != totals[j].Sales {
			return totals[i].Sales > totals[j].Sales
		}
		return totals[i].Key < totals[j].Key
	})
	return totals
}

// TopPublishers returns the n publishers with the highest global sales.
func TopPublishers(ds *dataset.Dataset, n int) []SalesTotal {
	totals := groupSales(ds, dataset.ColumnPublisher)
	if n >= 0 && n < len(totals) {
		totals = totals[:n]
	}
	return totals
}

// GenreShare returns global sales and share of total per genre.
func GenreShare(ds *dataset.Dataset) []SalesTotal {
	return groupSales(ds, dataset.ColumnGenre)
}

type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// SalesHistogram counts global sales in equal width bins spanning the observed
// range. The last bin includes its upper edge.
func SalesHistogram(ds *dataset.Dataset, bins int) []HistogramBin {
	values := base.DropNaN(ds.Column(dataset.ColumnGlobalSales))
	if len(values) == 0 || bins <= 0 {
		return []HistogramBin{}
	}
	sort.Float64s(values)
	low, high := values[0], values[len(values)-1]
	if low == high {
		low, high = low-0.5, high+0.5
	}
	edges := floats.Span(make([]float64, bins+1), low, high)
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(high, math.Inf(1))
	counts := stat.Histogram(nil, dividers, values, nil)
	return lo.Times(bins, func(i int) HistogramBin {
		return HistogramBin{Lower: edges[i], Upper: edges[i+1], Count: int(counts[i])}
	})
}

type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// SalesCorrelation computes Pearson correlation between sales columns over rows
// where both values are present. Undefined coefficients are null.
func SalesCorrelation(ds *dataset.Dataset) CorrelationMatrix {
	columns := lo.Map(dataset.SalesColumns, func(name string, _ int) []float64 {
		return ds.Column(name)
	})
	matrix := CorrelationMatrix{
		Columns: dataset.SalesColumns,
		Values:  make([][]*float64, len(columns)),
	}
	for i := range columns {
		matrix.Values[i] = make([]*float64, len(columns))
		for j := range columns {
			var x, y []float64
			for k := range columns[i] {
				if !math.IsNaN(columns[i][k]) && !math.IsNaN(columns[j][k]) {
					x = append(x, columns[i][k])
					y = append(y, columns[j][k])
				}
			}
			if len(x) < 2 || stat.StdDev(x, nil) == 0 || stat.StdDev(y, nil) == 0 {
				continue
			}
			matrix.Values[i][j] = dataset.Nullable(stat.Correlation(x, y, nil))
		}
	}
	return matrix
}

type ColumnSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Q50    *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// Describe summarizes the numeric columns. The standard deviation is the sample
// standard deviation and quantiles interpolate linearly.
func Describe(ds *dataset.Dataset) []ColumnSummary {
	columns := append([]string{dataset.ColumnRank, dataset.ColumnYear}, dataset.SalesColumns...)
	return lo.Map(columns, func(column string, _ int) ColumnSummary {
		values := base.DropNaN(ds.Column(column))
		summary := ColumnSummary{Column: column, Count: len(values)}
		if len(values) == 0 {
			return summary
		}
		mean, std := stat.MeanStdDev(values, nil)
		summary.Mean = dataset.Nullable(mean)
		summary.Std = dataset.Nullable(std)
		summary.Min = dataset.Nullable(floats.Min(values))
		summary.Q25 = dataset.Nullable(base.Quantile(values, 0.25))
		summary.Q50 = dataset.Nullable(base.Quantile(values, 0.5))
		summary.Q75 = dataset.Nullable(base.Quantile(values, 0.75))
		summary.Max = dataset.Nullable(floats.Max(values))
		return summary
	})
}

type MissingCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// MissingValues counts missing values per column.
func MissingValues(ds *dataset.Dataset) []MissingCount {
	return lo.Map(dataset.RequiredColumns, func(column string, _ int) MissingCount {
		return MissingCount{Column: column, Count: ds.MissingCount(column)}
	})
}

func nanSum(values []float64) float64 {
	return floats.Sum(base.DropNaN(values))
}
