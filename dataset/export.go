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
	"io"
	"math"
	"strconv"

	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"
)

var exportColumns = append([]string{ColumnRank}, RequiredColumns...)

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r GameRecord) row() []string {
	return []string{
		strconv.Itoa(r.Rank), r.Name, r.Platform, strconv.Itoa(r.Year), r.Genre, r.Publisher,
		formatNumber(r.NASales), formatNumber(r.EUSales), formatNumber(r.JPSales),
		formatNumber(r.OtherSales), formatNumber(r.GlobalSales),
	}
}

// WriteCSV writes the dataset in the layout accepted by LoadReader. Missing
// numbers are written as empty fields.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return errors.Trace(err)
	}
	for _, record := range d.records {
		if err := writer.Write(record.row()); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}

const SheetName = "vgsales"

// WriteXLSX writes the dataset as a single sheet workbook.
func (d *Dataset) WriteXLSX(w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Trace(err)
	}
	header := make([]any, len(exportColumns))
	for i, column := range exportColumns {
		header[i] = column
	}
	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Trace(err)
	}
	for i, record := range d.records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Trace(err)
		}
		row := []any{record.Rank, record.Name, record.Platform, record.Year, record.Genre, record.Publisher}
		for _, v := range []float64{record.NASales, record.EUSales, record.JPSales, record.OtherSales, record.GlobalSales} {
			if math.IsNaN(v) {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		}
		if err := file.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(file.Write(w))
}
