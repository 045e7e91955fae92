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

package mock

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/vgsales/dataset"
	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/require"
)

var (
	platforms  = []string{"DS", "GB", "GBA", "N64", "NES", "PC", "PS", "PS2", "PS3", "PS4", "PSP", "Wii", "X360", "XOne"}
	genres     = []string{"Action", "Adventure", "Fighting", "Misc", "Platform", "Puzzle", "Racing", "Role-Playing", "Shooter", "Simulation", "Sports", "Strategy"}
	publishers = []string{"Activision", "Electronic Arts", "Nintendo", "Sega", "Sony Computer Entertainment", "Take-Two Interactive", "Ubisoft"}
)

// Games generates n plausible records. The same seed yields the same records.
func Games(n int, seed int64) []dataset.GameRecord {
	fake := faker.NewWithSeed(rand.NewSource(seed))
	records := make([]dataset.GameRecord, n)
	for i := range records {
		sales := func(max int) float64 {
			return float64(fake.IntBetween(0, max)) / 100
		}
		record := dataset.GameRecord{
			Rank:       i + 1,
			Name:       fmt.Sprintf("%s %s %d", fake.Lorem().Word(), fake.Lorem().Word(), i),
			Platform:   fake.RandomStringElement(platforms),
			Year:       fake.IntBetween(1985, 2016),
			Genre:      fake.RandomStringElement(genres),
			Publisher:  fake.RandomStringElement(publishers),
			NASales:    sales(400),
			EUSales:    sales(300),
			JPSales:    sales(200),
			OtherSales: sales(100),
		}
		record.GlobalSales = record.NASales + record.EUSales + record.JPSales + record.OtherSales
		records[i] = record
	}
	return records
}

// WriteGames writes records as a sales CSV into a temporary directory and returns its path.
func WriteGames(t testing.TB, records []dataset.GameRecord) string {
	var buf bytes.Buffer
	require.NoError(t, dataset.NewDataset(records).WriteCSV(&buf))
	return WriteCSV(t, buf.String())
}

// WriteCSV writes raw CSV text into a temporary directory and returns its path.
func WriteCSV(t testing.TB, text string) string {
	path := filepath.Join(t.TempDir(), "vgsales.csv")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}
