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


package server

import (
	"bytes"
	"math"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/common/mock"
	"github.com/gorse-io/vgsales/config"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/gorse-io/vgsales/logics"
	"github.com/samber/lo"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const salesCSV = `Rank,Name,Platform,Year,Genre,Publisher,NA_Sales,EU_Sales,JP_Sales,Other_Sales,Global_Sales
1,A,Wii,2006,Sports,Nintendo,4,3,2,1,10
2,B,PS2,2004,Racing,Sony,2,2,1,1,6
3,C,Wii,2006,Racing,Nintendo,1,1,1,1,4
4,D,PS2,2001,Sports,Sony,3,,0,0,4
`

type ServerTestSuite struct {
	suite.Suite
	RestServer
	handler   *restful.Container
	salesPath string
	gamesPath string
	games     []dataset.GameRecord
}

func (suite *ServerTestSuite) SetupSuite() {
	log.CloseLogger()
	suite.salesPath = mock.WriteCSV(suite.T(), salesCSV)
	suite.games = mock.Games(120, 1)
	suite.gamesPath = mock.WriteGames(suite.T(), suite.games)

	cfg := config.GetDefaultConfig()
	cfg.Predict.NumTrees = 10
	cfg.Predict.NumJobs = 2
	suite.RestServer = *NewRestServer(cfg)
	suite.handler = suite.Container()
}

func (suite *ServerTestSuite) SetupTest() {
	suite.Config.Dataset.Path = suite.salesPath
	suite.Config.Server.AllowedOrigins = []string{"*"}
}

func (suite *ServerTestSuite) names(records []dataset.GameRecord) []string {
	return lo.Map(records, func(r dataset.GameRecord, _ int) string {
		return r.Name
	})
}

func (suite *ServerTestSuite) TestOverview() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/overview").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"total_games":4,"total_sales":24,"top_publisher":"Nintendo","top_platform":"Wii","top_genre":"Sports"}`).
		End()
	// filters compose
	apitest.New().
		Handler(suite.handler).
		Get("/api/overview").
		Query("genre", "Racing").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"total_games":2,"total_sales":10,"top_publisher":"Sony","top_platform":"PS2","top_genre":"Racing"}`).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/overview").
		QueryCollection(map[string][]string{"platform": {"Wii", "PS2"}}).
		Query("year_from", "2004").
		Query("search", "a").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"total_games":1,"total_sales":10,"top_publisher":"Nintendo","top_platform":"Wii","top_genre":"Sports"}`).
		End()
}

func (suite *ServerTestSuite) TestBadQuery() {
	t := suite.T()
	for _, query := range []map[string]string{
		{"year_from": "abc"},
		{"year_from": "2010", "year_to": "2000"},
		{"expr": "game.Name"},
		{"expr": "game.Unknown > 1"},
	} {
		apitest.New().
			Handler(suite.handler).
			Get("/api/overview").
			QueryParams(query).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	}
	apitest.New().
		Handler(suite.handler).
		Get("/api/overview").
		Query("expr", "game.GlobalSales > 5").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"total_games":2,"total_sales":16,"top_publisher":"Nintendo","top_platform":"Wii","top_genre":"Sports"}`).
		End()
}

func (suite *ServerTestSuite) TestDatasetNotFound() {
	suite.Config.Dataset.Path = suite.T().TempDir() + "/missing.csv"
	apitest.New().
		Handler(suite.handler).
		Get("/api/overview").
		Expect(suite.T()).
		Status(http.StatusInternalServerError).
		End()
}

func (suite *ServerTestSuite) TestGames() {
	t := suite.T()
	var list GameList
	apitest.New().
		Handler(suite.handler).
		Get("/api/games").
		Query("n", "2").
		Query("offset", "1").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&list)
	assert.Equal(t, 4, list.Total)
	assert.Equal(t, []string{"B", "C"}, suite.names(list.Games))
	// offset past the end
	list = GameList{}
	apitest.New().
		Handler(suite.handler).
		Get("/api/games").
		Query("offset", "10").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&list)
	assert.Equal(t, 4, list.Total)
	assert.Empty(t, list.Games)
	// offset+n must not overflow
	list = GameList{}
	apitest.New().
		Handler(suite.handler).
		Get("/api/games").
		Query("n", "1").
		Query("offset", strconv.Itoa(math.MaxInt)).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&list)
	assert.Equal(t, 4, list.Total)
	assert.Empty(t, list.Games)
	apitest.New().
		Handler(suite.handler).
		Get("/api/games").
		Query("offset", "-1").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/games").
		Query("n", strconv.Itoa(suite.Config.Server.MaxN+1)).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestLeaderboard() {
	t := suite.T()
	var games []dataset.GameRecord
	apitest.New().
		Handler(suite.handler).
		Get("/api/leaderboard").
		Query("n", "3").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&games)
	assert.Equal(t, []string{"A", "B", "C"}, suite.names(games))
	apitest.New().
		Handler(suite.handler).
		Get("/api/leaderboard").
		Query("n", "0").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/leaderboard").
		Query("n", strconv.Itoa(math.MaxInt)).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestRegions() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/regions").
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`[{"region":"NA","sales":10},{"region":"EU","sales":6},{"region":"JP","sales":4},{"region":"Other","sales":3}]`).
		End()
}

func (suite *ServerTestSuite) TestGenreRegions() {
	var totals []logics.GenreRegionTotal
	apitest.New().
		Handler(suite.handler).
		Get("/api/genres/regions").
		Expect(suite.T()).
		Status(http.StatusOK).
		End().
		JSON(&totals)
	assert.Len(suite.T(), totals, 8)
	assert.Equal(suite.T(), logics.GenreRegionTotal{Genre: "Racing", Region: dataset.RegionNA, Sales: 3}, totals[0])
}

func (suite *ServerTestSuite) TestGenres() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/genres").
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`[{"key":"Sports","sales":14,"share":0.5833333333333334},{"key":"Racing","sales":10,"share":0.4166666666666667}]`).
		End()
}

func (suite *ServerTestSuite) TestYears() {
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Expect(suite.T()).
		Status(http.StatusOK).
		Body(`[{"year":2001,"count":1},{"year":2004,"count":1},{"year":2006,"count":2}]`).
		End()
}

func (suite *ServerTestSuite) TestPublishers() {
	var totals []logics.SalesTotal
	apitest.New().
		Handler(suite.handler).
		Get("/api/publishers").
		Query("n", "1").
		Expect(suite.T()).
		Status(http.StatusOK).
		End().
		JSON(&totals)
	assert.Len(suite.T(), totals, 1)
	assert.Equal(suite.T(), "Nintendo", totals[0].Key)
	apitest.New().
		Handler(suite.handler).
		Get("/api/publishers").
		Query("n", strconv.Itoa(suite.Config.Server.MaxN+1)).
		Expect(suite.T()).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestStatistics() {
	t := suite.T()
	var bins []logics.HistogramBin
	apitest.New().
		Handler(suite.handler).
		Get("/api/histogram").
		Query("bins", "3").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&bins)
	assert.Len(t, bins, 3)
	apitest.New().
		Handler(suite.handler).
		Get("/api/histogram").
		Query("bins", "-1").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/histogram").
		Query("bins", "2000000000").
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	var matrix logics.CorrelationMatrix
	apitest.New().
		Handler(suite.handler).
		Get("/api/correlation").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&matrix)
	assert.Equal(t, dataset.SalesColumns, matrix.Columns)

	var summaries []logics.ColumnSummary
	apitest.New().
		Handler(suite.handler).
		Get("/api/describe").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&summaries)
	assert.NotEmpty(t, summaries)

	var missing []logics.MissingCount
	apitest.New().
		Handler(suite.handler).
		Get("/api/missing").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&missing)
	assert.Contains(t, missing, logics.MissingCount{Column: dataset.ColumnEUSales, Count: 1})
}

func (suite *ServerTestSuite) TestRealtime() {
	t := suite.T()
	var snapshot RealtimeSnapshot
	apitest.New().
		Handler(suite.handler).
		Get("/api/realtime").
		Query("seed", "1").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&snapshot)
	assert.Equal(t, int64(1), snapshot.Seed)
	assert.Equal(t, 4, snapshot.Overview.TotalGames)
	assert.GreaterOrEqual(t, snapshot.Overview.TotalSales, 24.0)
	assert.Len(t, snapshot.Leaderboard, 4)
	apitest.New().
		Handler(suite.handler).
		Get("/api/realtime").
		Query("seed", "x").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestExport() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/export").
		Query("genre", "Racing").
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", MIMECSV).
		Assert(func(res *http.Response, _ *http.Request) error {
			var body bytes.Buffer
			_, err := body.ReadFrom(res.Body)
			assert.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(body.String()), "\n")
			assert.Len(t, lines, 3)
			assert.True(t, strings.HasPrefix(lines[0], "Rank,Name"))
			return nil
		}).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/export").
		Query("format", "xlsx").
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", MIMEXLSX).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/export").
		Query("format", "json").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestPredict() {
	t := suite.T()
	suite.Config.Dataset.Path = suite.gamesPath
	target := suite.games[0]
	var result logics.PredictionResult
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict").
		Query("name", target.Name).
		Query("price", "50").
		Query("cost", "10").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&result)
	assert.Equal(t, target.Name, result.Game.Name)
	assert.InDelta(t, result.PredictedGlobalSales*50, result.Revenue, 1e-9)
	assert.InDelta(t, result.Revenue-10, result.Profit, 1e-9)
	assert.GreaterOrEqual(t, result.HitProbability, 0.0)
	assert.LessOrEqual(t, result.HitProbability, 1.0)
	assert.Contains(t, []logics.Status{logics.Hit, logics.Flop}, result.Status)

	// the filtered view does not contain the target
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict").
		Query("name", target.Name).
		Query("search", "no such game").
		Expect(t).
		Status(http.StatusNotFound).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict").
		Query("name", "no such game").
		Expect(t).
		Status(http.StatusNotFound).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict").
		Query("name", target.Name).
		Query("price", "abc").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestCategories() {
	t := suite.T()
	var categories map[string][]dataset.Category
	apitest.New().
		Handler(suite.handler).
		Get("/api/predict/categories").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&categories)
	assert.ElementsMatch(t, dataset.CategoricalColumns, lo.Keys(categories))
	assert.Equal(t, []dataset.Category{
		{Code: 0, Class: "PS2", Count: 2},
		{Code: 1, Class: "Wii", Count: 2},
	}, categories[dataset.ColumnPlatform])
	assert.Equal(t, []dataset.Category{
		{Code: 0, Class: "Racing", Count: 2},
		{Code: 1, Class: "Sports", Count: 2},
	}, categories[dataset.ColumnGenre])
}

func (suite *ServerTestSuite) TestRequestID() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Header(HeaderRequestID, "request-1").
		Expect(t).
		Status(http.StatusOK).
		Header(HeaderRequestID, "request-1").
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Expect(t).
		Status(http.StatusOK).
		HeaderPresent(HeaderRequestID).
		End()
}

func (suite *ServerTestSuite) TestCORS() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Header("Origin", "http://localhost:3000").
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", "*").
		End()
	suite.Config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Header("Origin", "http://localhost:3000").
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", "http://localhost:3000").
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Header("Origin", "http://example.com").
		Expect(t).
		Status(http.StatusOK).
		HeaderNotPresent("Access-Control-Allow-Origin").
		End()
}

func (suite *ServerTestSuite) TestAPIDocsAndMetrics() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/apidocs.json").
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/years").
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			var body bytes.Buffer
			_, err := body.ReadFrom(res.Body)
			assert.NoError(t, err)
			assert.Contains(t, body.String(), "vgsales_server_request_seconds")
			return nil
		}).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
