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
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/samber/lo"
)

// Query selects records of a dataset. All non-empty conditions must hold.
type Query struct {
	// Search matches names containing the string, ignoring case.
	Search string
	// Genres and Platforms keep records whose value is one of the listed values.
	Genres    []string
	Platforms []string
	// YearFrom and YearTo bound the release year inclusively. Zero means unbounded.
	YearFrom int
	YearTo   int
	// Expr is a boolean expression over game, e.g. `game.Year >= 2000 && game.NASales > 1`.
	Expr string
}

func (q Query) IsEmpty() bool {
	return q.Search == "" && len(q.Genres) == 0 && len(q.Platforms) == 0 &&
		q.YearFrom == 0 && q.YearTo == 0 && q.Expr == ""
}

// CompileFilter compiles a boolean expression over game.
func CompileFilter(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(map[string]any{
		"game": GameRecord{},
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if program.Node().Type().Kind() != reflect.Bool {
		return nil, fmt.Errorf("%w: expression %q must return a boolean", ErrInvalidQuery, src)
	}
	return program, nil
}

// Filter returns the records matching q in dataset order.
func (d *Dataset) Filter(q Query) (*Dataset, error) {
	if q.IsEmpty() {
		return d, nil
	}
	if q.YearFrom != 0 && q.YearTo != 0 && q.YearFrom > q.YearTo {
		return nil, fmt.Errorf("%w: year_from %d is after year_to %d", ErrInvalidQuery, q.YearFrom, q.YearTo)
	}
	var program *vm.Program
	if q.Expr != "" {
		var err error
		if program, err = CompileFilter(q.Expr); err != nil {
			return nil, err
		}
	}
	search := strings.ToLower(q.Search)
	var records []GameRecord
	for _, record := range d.records {
		if search != "" && !strings.Contains(strings.ToLower(record.Name), search) {
			continue
		}
		if len(q.Genres) > 0 && !lo.Contains(q.Genres, record.Genre) {
			continue
		}
		if len(q.Platforms) > 0 && !lo.Contains(q.Platforms, record.Platform) {
			continue
		}
		if q.YearFrom != 0 && record.Year < q.YearFrom {
			continue
		}
		if q.YearTo != 0 && record.Year > q.YearTo {
			continue
		}
		if program != nil {
			result, err := expr.Run(program, map[string]any{"game": record})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
			}
			if matched, _ := result.(bool); !matched {
				continue
			}
		}
		records = append(records, record)
	}
	return NewDataset(records), nil
}
