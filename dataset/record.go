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
	"encoding/json"
	"math"
)

// Column names of the sales CSV.
const (
	ColumnRank        = "Rank"
	ColumnName        = "Name"
	ColumnPlatform    = "Platform"
	ColumnYear        = "Year"
	ColumnGenre       = "Genre"
	ColumnPublisher   = "Publisher"
	ColumnNASales     = "NA_Sales"
	ColumnEUSales     = "EU_Sales"
	ColumnJPSales     = "JP_Sales"
	ColumnOtherSales  = "Other_Sales"
	ColumnGlobalSales = "Global_Sales"
)

// RequiredColumns must be present in the header. Rank is optional.
var RequiredColumns = []string{
	ColumnName, ColumnPlatform, ColumnYear, ColumnGenre, ColumnPublisher,
	ColumnNASales, ColumnEUSales, ColumnJPSales, ColumnOtherSales, ColumnGlobalSales,
}

// CategoricalColumns are label encoded before training.
var CategoricalColumns = []string{ColumnPlatform, ColumnGenre, ColumnPublisher}

// SalesColumns hold sales in millions of units.
var SalesColumns = []string{ColumnNASales, ColumnEUSales, ColumnJPSales, ColumnOtherSales, ColumnGlobalSales}

type Region string

const (
	RegionNA    Region = "NA"
	RegionEU    Region = "EU"
	RegionJP    Region = "JP"
	RegionOther Region = "Other"
)

var Regions = []Region{RegionNA, RegionEU, RegionJP, RegionOther}

// GameRecord is one row of the sales dataset. Missing sales are NaN and missing
// strings are empty.
type GameRecord struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	Year        int     `json:"year"`
	Genre       string  `json:"genre"`
	Publisher   string  `json:"publisher"`
	NASales     float64 `json:"na_sales"`
	EUSales     float64 `json:"eu_sales"`
	JPSales     float64 `json:"jp_sales"`
	OtherSales  float64 `json:"other_sales"`
	GlobalSales float64 `json:"global_sales"`
}

// RegionSales returns the sales of a region.
func (r GameRecord) RegionSales(region Region) float64 {
	switch region {
	case RegionNA:
		return r.NASales
	case RegionEU:
		return r.EUSales
	case RegionJP:
		return r.JPSales
	case RegionOther:
		return r.OtherSales
	default:
		return math.NaN()
	}
}

// Category returns the value of a categorical column.
func (r GameRecord) Category(column string) (string, bool) {
	switch column {
	case ColumnName:
		return r.Name, true
	case ColumnPlatform:
		return r.Platform, true
	case ColumnGenre:
		return r.Genre, true
	case ColumnPublisher:
		return r.Publisher, true
	default:
		return "", false
	}
}

// Number returns the value of a numeric column.
func (r GameRecord) Number(column string) (float64, bool) {
	switch column {
	case ColumnRank:
		return float64(r.Rank), true
	case ColumnYear:
		return float64(r.Year), true
	case ColumnNASales:
		return r.NASales, true
	case ColumnEUSales:
		return r.EUSales, true
	case ColumnJPSales:
		return r.JPSales, true
	case ColumnOtherSales:
		return r.OtherSales, true
	case ColumnGlobalSales:
		return r.GlobalSales, true
	default:
		return math.NaN(), false
	}
}

// Nullable returns nil for NaN so that missing values encode as JSON null.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// MarshalJSON encodes missing sales as null.
func (r GameRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rank        int      `json:"rank"`
		Name        string   `json:"name"`
		Platform    string   `json:"platform"`
		Year        int      `json:"year"`
		Genre       string   `json:"genre"`
		Publisher   string   `json:"publisher"`
		NASales     *float64 `json:"na_sales"`
		EUSales     *float64 `json:"eu_sales"`
		JPSales     *float64 `json:"jp_sales"`
		OtherSales  *float64 `json:"other_sales"`
		GlobalSales *float64 `json:"global_sales"`
	}{
		Rank:        r.Rank,
		Name:        r.Name,
		Platform:    r.Platform,
		Year:        r.Year,
		Genre:       r.Genre,
		Publisher:   r.Publisher,
		NASales:     Nullable(r.NASales),
		EUSales:     Nullable(r.EUSales),
		JPSales:     Nullable(r.JPSales),
		OtherSales:  Nullable(r.OtherSales),
		GlobalSales: Nullable(r.GlobalSales),
	})
}
