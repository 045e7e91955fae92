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

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"go.uber.org/zap"
)

// missingTokens are read as missing values.
var missingTokens = mapset.NewSet(
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
)

func isMissing(token string) bool {
	return missingTokens.Contains(token)
}

// Load reads and normalizes the sales dataset stored at path.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
	}
	defer file.Close()
	ds, err := LoadReader(file)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	return ds, nil
}

// LoadReader reads a sales CSV from r and normalizes it:
//
//  1. missing years are filled with the mean of known years,
//  2. missing publishers are filled with the most frequent publisher,
//  3. years are truncated to integers.
func LoadReader(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrDataLoad)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if _, exist := columns[name]; !exist {
			columns[name] = i
		}
	}
	for _, name := range RequiredColumns {
		if _, exist := columns[name]; !exist {
			return nil, fmt.Errorf("%w: missing column %q", ErrDataLoad, name)
		}
	}
	rankIndex, hasRank := columns[ColumnRank]

	var (
		records []GameRecord
		years   []float64
	)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
		}
		parse := func(column string) (float64, error) {
			token := strings.TrimSpace(row[columns[column]])
			if isMissing(token) {
				return math.NaN(), nil
			}
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: line %d: column %s: invalid number %q", ErrDataLoad, line, column, token)
			}
			return v, nil
		}
		text := func(column string) string {
			token := row[columns[column]]
			if isMissing(token) {
				return ""
			}
			return token
		}

		record := GameRecord{
			Name:      text(ColumnName),
			Platform:  text(ColumnPlatform),
			Genre:     text(ColumnGenre),
			Publisher: text(ColumnPublisher),
		}
		year, err := parse(ColumnYear)
		if err != nil {
			return nil, err
		}
		for i, field := range []*float64{
			&record.NASales, &record.EUSales, &record.JPSales, &record.OtherSales, &record.GlobalSales,
		} {
			if *field, err = parse(SalesColumns[i]); err != nil {
				return nil, err
			}
		}
		if hasRank {
			token := strings.TrimSpace(row[rankIndex])
			if !isMissing(token) {
				rank, err := strconv.ParseFloat(token, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: column %s: invalid number %q", ErrDataLoad, line, ColumnRank, token)
				}
				record.Rank = int(rank)
			}
		}
		records = append(records, record)
		years = append(years, year)
	}

	// fill missing years with the mean of known years
	knownYears := base.DropNaN(years)
	filledYears := len(years) - len(knownYears)
	if filledYears > 0 && len(knownYears) == 0 {
		return nil, fmt.Errorf("%w: every %s is missing", ErrDataLoad, ColumnYear)
	}
	var meanYear float64
	if len(knownYears) > 0 {
		meanYear = stat.Mean(knownYears, nil)
	}
	for i := range records {
		if math.IsNaN(years[i]) {
			years[i] = meanYear
		}
		records[i].Year = int(years[i])
	}

	// fill missing publishers with the mode
	filledPublishers := lo.CountBy(records, func(r GameRecord) bool {
		return r.Publisher == ""
	})
	if filledPublishers > 0 {
		mode, ok := base.Mode(lo.Map(records, func(r GameRecord, _ int) string {
			return r.Publisher
		}))
		if !ok {
			return nil, fmt.Errorf("%w: every %s is missing", ErrDataLoad, ColumnPublisher)
		}
		for i := range records {
			if records[i].Publisher == "" {
				records[i].Publisher = mode
			}
		}
	}

	log.Logger().Info("load dataset",
		zap.Int("n_records", len(records)),
		zap.Int("filled_years", filledYears),
		zap.Int("filled_publishers", filledPublishers))
	return NewDataset(records), nil
}
