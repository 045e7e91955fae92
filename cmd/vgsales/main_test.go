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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/vgsales/common/mock"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `Rank,Name,Platform,Year,Genre,Publisher,NA_Sales,EU_Sales,JP_Sales,Other_Sales,Global_Sales
1,A,Wii,2006,Sports,Nintendo,4,3,2,1,10
2,B,PS2,2004,Racing,Sony,2,2,1,1,6
3,C,Wii,2006,Racing,Nintendo,1,1,1,1,4
4,D,PS2,2001,Sports,Sony,3,,0,0,4
`

func execute(t *testing.T, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := newRootCommand()
	command.SetOut(&stdout)
	command.SetErr(&stderr)
	command.SetArgs(args)
	err := command.Execute()
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "Version:")
}

func TestSummary(t *testing.T) {
	path := mock.WriteCSV(t, salesCSV)
	out, err := execute(t, "summary", "--dataset", path, "-n", "2")
	assert.NoError(t, err)
	assert.Contains(t, out, "Nintendo")
	assert.Contains(t, out, "10.00")

	_, err = execute(t, "summary", "--dataset", path, "--expr", "game.Name")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	path := mock.WriteCSV(t, salesCSV)
	output := filepath.Join(t.TempDir(), "racing.csv")
	_, err := execute(t, "export", "--dataset", path, "--genre", "Racing", "--output", output)
	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2,B,"))

	out, err := execute(t, "export", "--dataset", path, "--year-to", "2001")
	assert.NoError(t, err)
	assert.Contains(t, out, "4,D,PS2,2001,Sports,Sony,3,,0,0,4")

	_, err = execute(t, "export", "--dataset", path, "--format", "json")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = execute(t, "export", "--dataset", path, "--format", "xlsx")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = execute(t, "export", "--dataset", path, "--format", "xlsx", "--output", filepath.Join(t.TempDir(), "vgsales.xlsx"))
	assert.NoError(t, err)
}

type failingCloser struct {
	bytes.Buffer
	err error
}

func (w *failingCloser) Close() error {
	return w.err
}

func TestWriteAndClose(t *testing.T) {
	ds, err := dataset.LoadReader(strings.NewReader(salesCSV))
	require.NoError(t, err)
	w := &failingCloser{}
	assert.NoError(t, writeAndClose(w, ds, "csv"))
	assert.Contains(t, w.String(), "1,A,Wii,2006,Sports,Nintendo")

	w = &failingCloser{err: os.ErrClosed}
	assert.ErrorIs(t, writeAndClose(w, ds, "csv"), os.ErrClosed)
}

func TestPredict(t *testing.T) {
	t.Setenv("VGSALES_PREDICT_N_TREES", "10")
	games := mock.Games(100, 1)
	path := mock.WriteGames(t, games)
	out, err := execute(t, "predict", games[3].Name, "--dataset", path, "--quiet", "--price", "10", "--cost", "1")
	assert.NoError(t, err)
	assert.Contains(t, out, games[3].Name)
	assert.Contains(t, out, "Predicted")

	_, err = execute(t, "predict", "no such game", "--dataset", path, "--quiet")
	assert.Error(t, err)
	_, err = execute(t, "predict", "--dataset", path)
	assert.Error(t, err)
}
