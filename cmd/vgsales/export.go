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
	"io"
	"os"

	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCommand() *cobra.Command {
	exportCommand := &cobra.Command{
		Use:   "export",
		Short: "Export the cleaned dataset as CSV or XLSX.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if format != "csv" && format != "xlsx" {
				return errors.NotValidf("format %q", format)
			}
			if format == "xlsx" && output == "" {
				return errors.NotValidf("xlsx export to stdout")
			}
			conf, err := loadConfig(cmd)
			if err != nil {
				return errors.Trace(err)
			}
			_, ds, err := loadDataset(cmd, conf)
			if err != nil {
				return errors.Trace(err)
			}

			if output == "" {
				err = writeDataset(cmd.OutOrStdout(), ds, format)
			} else {
				var file *os.File
				if file, err = os.Create(output); err != nil {
					return errors.Trace(err)
				}
				err = writeAndClose(file, ds, format)
			}
			if err != nil {
				return errors.Trace(err)
			}
			log.Logger().Info("export dataset",
				zap.String("format", format),
				zap.String("output", output),
				zap.Int("n_records", ds.Count()))
			return nil
		},
	}
	exportCommand.Flags().StringP("format", "f", "csv", "output format (csv or xlsx)")
	exportCommand.Flags().StringP("output", "o", "", "output file (defaults to stdout)")
	addQueryFlags(exportCommand.Flags())
	return exportCommand
}

func writeDataset(w io.Writer, ds *dataset.Dataset, format string) error {
	if format == "xlsx" {
		return ds.WriteXLSX(w)
	}
	return ds.WriteCSV(w)
}

// writeAndClose writes ds to w and closes it. A failed close fails the export.
func writeAndClose(w io.WriteCloser, ds *dataset.Dataset, format string) (err error) {
	defer func() {
		if closeErr := w.Close(); err == nil {
			err = errors.Trace(closeErr)
		}
	}()
	return writeDataset(w, ds, format)
}
