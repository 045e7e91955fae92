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
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Rank,Name,Platform,Year,Genre,Publisher,NA_Sales,EU_Sales,JP_Sales,Other_Sales,Global_Sales\n"

func TestLoadReader(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(header +
		"1,Wii Sports,Wii,2006,Sports,Nintendo,41.49,29.02,3.77,8.46,82.74\n" +
		"2,Super Mario Bros.,NES,1985,Platform,Nintendo,29.08,3.58,6.81,0.77,40.24\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Count())
	assert.Equal(t, GameRecord{
		Rank:        1,
		Name:        "Wii Sports",
		Platform:    "Wii",
		Year:        2006,
		Genre:       "Sports",
		Publisher:   "Nintendo",
		NASales:     41.49,
		EUSales:     29.02,
		JPSales:     3.77,
		OtherSales:  8.46,
		GlobalSales: 82.74,
	}, ds.Get(0))
}

func TestLoadReader_FillYear(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(header +
		"1,A,Wii,2000,Sports,Nintendo,1,0,0,0,1\n" +
		"2,B,Wii,2003,Sports,Nintendo,1,0,0,0,1\n" +
		"3,C,Wii,N/A,Sports,Nintendo,1,0,0,0,1\n"))
	require.NoError(t, err)
	// mean is 2001.5, truncated
	assert.Equal(t, []int{2000, 2003, 2001}, []int{ds.Get(0).Year, ds.Get(1).Year, ds.Get(2).Year})
}

func TestLoadReader_FillPublisher(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(header +
		"1,A,Wii,2000,Sports,Sega,1,0,0,0,1\n" +
		"2,B,Wii,2001,Sports,Nintendo,1,0,0,0,1\n" +
		"3,C,Wii,2002,Sports,,1,0,0,0,1\n" +
		"4,D,Wii,2003,Sports,N/A,1,0,0,0,1\n"))
	require.NoError(t, err)
	// tie between Nintendo and Sega
	assert.Equal(t, "Nintendo", ds.Get(2).Publisher)
	assert.Equal(t, "Nintendo", ds.Get(3).Publisher)
	assert.Zero(t, ds.MissingCount(ColumnPublisher))
}

func TestLoadReader_PassThroughMissing(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(header +
		"1,A,Wii,2000,,Sega,1,,0,0,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "", ds.Get(0).Genre)
	assert.True(t, math.IsNaN(ds.Get(0).EUSales))
	assert.Equal(t, 1, ds.MissingCount(ColumnGenre))
	assert.Equal(t, 1, ds.MissingCount(ColumnEUSales))
}

func TestLoadReader_WithoutRank(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(
		"Name,Platform,Year,Genre,Publisher,NA_Sales,EU_Sales,JP_Sales,Other_Sales,Global_Sales,Critic_Score\n" +
			"A,Wii,2000,Sports,Sega,1,0,0,0,1,80\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Get(0).Rank)
	assert.Equal(t, "A", ds.Get(0).Name)
}

func TestLoadReader_Errors(t *testing.T) {
	for name, text := range map[string]string{
		"empty":          "",
		"missing column": "Name,Platform,Year\nA,Wii,2000\n",
		"bad number":     header + "1,A,Wii,2000,Sports,Sega,one,0,0,0,1\n",
		"bad year":       header + "1,A,Wii,soon,Sports,Sega,1,0,0,0,1\n",
		"malformed":      header + "1,A,Wii\n",
		"all years":      header + "1,A,Wii,,Sports,Sega,1,0,0,0,1\n",
		"all publishers": header + "1,A,Wii,2000,Sports,,1,0,0,0,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(text))
			assert.True(t, errors.Is(err, ErrDataLoad), err)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrDataLoad)

	path := filepath.Join(t.TempDir(), "vgsales.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+
		"1,A,Wii,N/A,Sports,N/A,1,0,0,0,1\n"+
		"2,B,PS2,2004,Racing,Sega,2,0,0,0,2\n"), 0644))
	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, first.Records(), second.Records())
	assert.Equal(t, 2004, first.Get(0).Year)
	assert.Equal(t, "Sega", first.Get(0).Publisher)
}
