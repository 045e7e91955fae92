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
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/google/uuid"
	"github.com/gorse-io/vgsales/base"
	"github.com/gorse-io/vgsales/base/log"
	"github.com/gorse-io/vgsales/config"
	"github.com/gorse-io/vgsales/dataset"
	"github.com/gorse-io/vgsales/logics"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"
	MIMECSV         = "text/csv"
	MIMEXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RestServer implements the JSON API over the sales dataset.
type RestServer struct {
	Config     *config.Config
	Predictor  *logics.Predictor
	HttpHost   string
	HttpPort   int
	WebService *restful.WebService
	httpServer *http.Server
}

// NewRestServer creates a server from the configuration.
func NewRestServer(cfg *config.Config) *RestServer {
	cfg = cfg.LoadDefaultIfNil()
	return &RestServer{
		Config:     cfg,
		Predictor:  logics.NewPredictor(cfg.Predict),
		HttpHost:   cfg.Server.Host,
		HttpPort:   cfg.Server.Port,
		WebService: new(restful.WebService),
	}
}

// Container registers the web service, the OpenAPI document and the metrics endpoint.
func (s *RestServer) Container() *restful.Container {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle("/metrics", promhttp.Handler())
	container.Filter(s.CORSFilter)
	return container
}

func (s *RestServer) StartHttpServer() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort),
		Handler: s.Container(),
	}
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

func (s *RestServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return errors.Trace(s.httpServer.Shutdown(ctx))
}

// CORSFilter allows the configured origins.
func (s *RestServer) CORSFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	origin := req.HeaderParameter("Origin")
	allowed := s.Config.Server.AllowedOrigins
	if origin != "" {
		if lo.Contains(allowed, "*") {
			resp.AddHeader("Access-Control-Allow-Origin", "*")
		} else if lo.Contains(allowed, origin) {
			resp.AddHeader("Access-Control-Allow-Origin", origin)
			resp.AddHeader("Vary", "Origin")
		}
	}
	chain.ProcessFilter(req, resp)
}

// RequestIDFilter propagates the request id of the client or generates one.
func RequestIDFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestID := req.HeaderParameter(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	resp.AddHeader(HeaderRequestID, requestID)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	RequestSeconds.WithLabelValues(req.SelectedRoutePath(), strconv.Itoa(resp.StatusCode())).
		Observe(time.Since(start).Seconds())
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

// GameList is a page of games.
type GameList struct {
	Total int                  `json:"total"`
	Games []dataset.GameRecord `json:"games"`
}

// RealtimeSnapshot is the dashboard state after one simulated tick.
type RealtimeSnapshot struct {
	Seed        int64                `json:"seed"`
	Overview    logics.OverviewStats `json:"overview"`
	Regions     []logics.RegionTotal `json:"regions"`
	Leaderboard []dataset.GameRecord `json:"leaderboard"`
}

func filterParams(ws *restful.WebService, builder *restful.RouteBuilder) *restful.RouteBuilder {
	return builder.
		Param(ws.QueryParameter("search", "case-insensitive substring of the game name").DataType("string")).
		Param(ws.QueryParameter("genre", "genre to keep, repeatable").DataType("string").AllowMultiple(true)).
		Param(ws.QueryParameter("platform", "platform to keep, repeatable").DataType("string").AllowMultiple(true)).
		Param(ws.QueryParameter("year_from", "first release year").DataType("integer")).
		Param(ws.QueryParameter("year_to", "last release year").DataType("integer")).
		Param(ws.QueryParameter("expr", "boolean expression over game").DataType("string"))
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(RequestIDFilter)
	ws.Filter(LogFilter)
	ws.Filter(otelrestful.OTelFilter("vgsales"))

	/* Summaries */

	ws.Route(filterParams(ws, ws.GET("/overview").To(s.getOverview)).
		Doc("Get headline numbers of the dataset.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Writes(logics.OverviewStats{}))
	ws.Route(filterParams(ws, ws.GET("/games").To(s.getGames)).
		Doc("Get games in dataset order.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Param(ws.QueryParameter("n", "number of returned games").DataType("integer")).
		Param(ws.QueryParameter("offset", "offset of returned games").DataType("integer")).
		Writes(GameList{}))
	ws.Route(filterParams(ws, ws.GET("/leaderboard").To(s.getLeaderboard)).
		Doc("Get best selling games.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Param(ws.QueryParameter("n", "number of returned games").DataType("integer")).
		Writes([]dataset.GameRecord{}))
	ws.Route(filterParams(ws, ws.GET("/regions").To(s.getRegions)).
		Doc("Get total sales per region.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Writes([]logics.RegionTotal{}))
	ws.Route(filterParams(ws, ws.GET("/genres/regions").To(s.getGenreRegions)).
		Doc("Get sales per genre and region.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Writes([]logics.GenreRegionTotal{}))
	ws.Route(filterParams(ws, ws.GET("/genres").To(s.getGenres)).
		Doc("Get global sales share per genre.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Writes([]logics.SalesTotal{}))
	ws.Route(filterParams(ws, ws.GET("/years").To(s.getYears)).
		Doc("Get number of releases per year.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Writes([]logics.YearCount{}))
	ws.Route(filterParams(ws, ws.GET("/publishers").To(s.getPublishers)).
		Doc("Get best selling publishers.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"summary"}).
		Param(ws.QueryParameter("n", "number of returned publishers").DataType("integer")).
		Writes([]logics.SalesTotal{}))

	/* Statistics */

	ws.Route(filterParams(ws, ws.GET("/histogram").To(s.getHistogram)).
		Doc("Get histogram of global sales.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"statistics"}).
		Param(ws.QueryParameter("bins", "number of bins").DataType("integer")).
		Writes([]logics.HistogramBin{}))
	ws.Route(filterParams(ws, ws.GET("/correlation").To(s.getCorrelation)).
		Doc("Get correlation matrix of sales columns.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"statistics"}).
		Writes(logics.CorrelationMatrix{}))
	ws.Route(filterParams(ws, ws.GET("/describe").To(s.getDescribe)).
		Doc("Get descriptive statistics of numeric columns.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"statistics"}).
		Writes([]logics.ColumnSummary{}))
	ws.Route(filterParams(ws, ws.GET("/missing").To(s.getMissing)).
		Doc("Get number of missing values per column.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"statistics"}).
		Writes([]logics.MissingCount{}))
	ws.Route(filterParams(ws, ws.GET("/realtime").To(s.getRealtime)).
		Doc("Get dashboard numbers after a simulated sales tick.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"statistics"}).
		Param(ws.QueryParameter("seed", "seed of the simulation").DataType("integer")).
		Writes(RealtimeSnapshot{}))

	/* Export */

	ws.Route(filterParams(ws, ws.GET("/export").To(s.export)).
		Doc("Download games as CSV or XLSX.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"export"}).
		Produces(MIMECSV, MIMEXLSX, restful.MIME_JSON).
		Param(ws.QueryParameter("format", "csv or xlsx").DataType("string").DefaultValue("csv")))

	/* Prediction */

	ws.Route(filterParams(ws, ws.GET("/predict").To(s.predict)).
		Doc("Predict global sales, hit probability and profit of a game.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"predict"}).
		Param(ws.QueryParameter("name", "name of the game").DataType("string").Required(true)).
		Param(ws.QueryParameter("price", "price per unit").DataType("number")).
		Param(ws.QueryParameter("cost", "development cost").DataType("number")).
		Writes(logics.PredictionResult{}))
	ws.Route(ws.GET("/predict/categories").To(s.getCategories).
		Doc("Get the codes and counts of categorical features.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"predict"}).
		Writes(map[string][]dataset.Category{}))
}

// ParseQuery reads the dataset filter from query parameters.
func ParseQuery(request *restful.Request) (dataset.Query, error) {
	q := dataset.Query{
		Search:    request.QueryParameter("search"),
		Genres:    request.QueryParameters("genre"),
		Platforms: request.QueryParameters("platform"),
		Expr:      request.QueryParameter("expr"),
	}
	var err error
	if q.YearFrom, err = ParseInt(request, "year_from", 0); err != nil {
		return q, err
	}
	if q.YearTo, err = ParseInt(request, "year_to", 0); err != nil {
		return q, err
	}
	return q, nil
}

// loadDataset reads the dataset from disk and applies the filter of the request.
// It writes the error response and returns false on failure.
func (s *RestServer) loadDataset(request *restful.Request, response *restful.Response) (full, filtered *dataset.Dataset, ok bool) {
	q, err := ParseQuery(request)
	if err != nil {
		BadRequest(response, err)
		return nil, nil, false
	}
	start := time.Now()
	full, err = dataset.Load(s.Config.Dataset.Path)
	if err != nil {
		InternalServerError(response, err)
		return nil, nil, false
	}
	LoadDatasetSeconds.Observe(time.Since(start).Seconds())
	filtered, err = full.Filter(q)
	if err != nil {
		if errors.Is(err, dataset.ErrInvalidQuery) {
			BadRequest(response, err)
		} else {
			InternalServerError(response, err)
		}
		return nil, nil, false
	}
	return full, filtered, true
}

// parseBounded reads a positive integer parameter no greater than limit.
func (s *RestServer) parseBounded(request *restful.Request, response *restful.Response, name string, fallback, limit int) (int, bool) {
	n, err := ParseInt(request, name, fallback)
	if err != nil {
		BadRequest(response, err)
		return 0, false
	}
	if n <= 0 || n > limit {
		BadRequest(response, errors.NotValidf("%s %d out of range [1, %d]", name, n, limit))
		return 0, false
	}
	return n, true
}

func (s *RestServer) getOverview(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.Overview(ds))
	}
}

func (s *RestServer) getGames(request *restful.Request, response *restful.Response) {
	n, ok := s.parseBounded(request, response, "n", s.Config.Server.DefaultN, s.Config.Server.MaxN)
	if !ok {
		return
	}
	offset, err := ParseInt(request, "offset", 0)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if offset < 0 {
		BadRequest(response, errors.NotValidf("offset %d", offset))
		return
	}
	_, ds, ok := s.loadDataset(request, response)
	if !ok {
		return
	}
	records := ds.Records()
	begin := min(offset, len(records))
	end := begin + min(n, len(records)-begin)
	Ok(response, GameList{Total: len(records), Games: records[begin:end]})
}

func (s *RestServer) getLeaderboard(request *restful.Request, response *restful.Response) {
	n, ok := s.parseBounded(request, response, "n", s.Config.Server.DefaultN, s.Config.Server.MaxN)
	if !ok {
		return
	}
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.TopGames(ds, n))
	}
}

func (s *RestServer) getRegions(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.RegionalSales(ds))
	}
}

func (s *RestServer) getGenreRegions(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.GenreRegionSales(ds))
	}
}

func (s *RestServer) getGenres(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.GenreShare(ds))
	}
}

func (s *RestServer) getYears(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.ReleasesPerYear(ds))
	}
}

func (s *RestServer) getPublishers(request *restful.Request, response *restful.Response) {
	n, ok := s.parseBounded(request, response, "n", s.Config.Server.DefaultN, s.Config.Server.MaxN)
	if !ok {
		return
	}
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.TopPublishers(ds, n))
	}
}

func (s *RestServer) getHistogram(request *restful.Request, response *restful.Response) {
	bins, ok := s.parseBounded(request, response, "bins", s.Config.Server.HistogramBins, s.Config.Server.MaxBins)
	if !ok {
		return
	}
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.SalesHistogram(ds, bins))
	}
}

func (s *RestServer) getCorrelation(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.SalesCorrelation(ds))
	}
}

func (s *RestServer) getDescribe(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.Describe(ds))
	}
}

func (s *RestServer) getMissing(request *restful.Request, response *restful.Response) {
	if _, ds, ok := s.loadDataset(request, response); ok {
		Ok(response, logics.MissingValues(ds))
	}
}

func (s *RestServer) getRealtime(request *restful.Request, response *restful.Response) {
	seed := time.Now().UnixNano()
	if value := request.QueryParameter("seed"); value != "" {
		var err error
		if seed, err = strconv.ParseInt(value, 10, 64); err != nil {
			BadRequest(response, errors.Annotatef(err, "failed to parse seed"))
			return
		}
	}
	_, ds, ok := s.loadDataset(request, response)
	if !ok {
		return
	}
	live := logics.SimulateLiveSales(ds, base.NewRandomGenerator(seed), s.Config.Realtime.MaxIncrement)
	Ok(response, RealtimeSnapshot{
		Seed:        seed,
		Overview:    logics.Overview(live),
		Regions:     logics.RegionalSales(live),
		Leaderboard: logics.TopGames(live, s.Config.Server.DefaultN),
	})
}

func (s *RestServer) export(request *restful.Request, response *restful.Response) {
	format := request.QueryParameter("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		BadRequest(response, errors.NotValidf("format %q", format))
		return
	}
	_, ds, ok := s.loadDataset(request, response)
	if !ok {
		return
	}
	var err error
	switch format {
	case "csv":
		response.AddHeader("Content-Type", MIMECSV)
		response.AddHeader("Content-Disposition", `attachment; filename="vgsales.csv"`)
		err = ds.WriteCSV(response)
	case "xlsx":
		response.AddHeader("Content-Type", MIMEXLSX)
		response.AddHeader("Content-Disposition", `attachment; filename="vgsales.xlsx"`)
		err = ds.WriteXLSX(response)
	}
	if err != nil {
		log.ResponseLogger(response).Error("failed to export dataset", zap.String("format", format), zap.Error(err))
	}
}

func (s *RestServer) predict(request *restful.Request, response *restful.Response) {
	name := request.QueryParameter("name")
	if name == "" {
		BadRequest(response, errors.NotValidf("empty name"))
		return
	}
	price, err := ParseFloat(request, "price", s.Config.Predict.PricePerUnit)
	if err != nil {
		BadRequest(response, err)
		return
	}
	cost, err := ParseFloat(request, "cost", s.Config.Predict.DevelopmentCost)
	if err != nil {
		BadRequest(response, err)
		return
	}
	full, filtered, ok := s.loadDataset(request, response)
	if !ok {
		return
	}
	start := time.Now()
	result, err := s.Predictor.Predict(request.Request.Context(), full, name, price, cost,
		logics.WithCandidates(filtered))
	if err != nil {
		switch {
		case errors.Is(err, logics.ErrGameNotFound):
			PageNotFound(response, err)
		case errors.Is(err, logics.ErrUnknownCategory), errors.Is(err, logics.ErrMissingFeature):
			BadRequest(response, err)
		default:
			InternalServerError(response, err)
		}
		return
	}
	PredictSeconds.Observe(time.Since(start).Seconds())
	Ok(response, result)
}

func (s *RestServer) getCategories(request *restful.Request, response *restful.Response) {
	if full, _, ok := s.loadDataset(request, response); ok {
		Ok(response, dataset.NewEncodingTable(full).Categories())
	}
}

// ParseInt parses an integer query parameter. It returns fallback if the parameter is absent.
func ParseInt(request *restful.Request, name string, fallback int) (int, error) {
	value := request.QueryParameter(name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("failed to parse %s", name))
	}
	return n, nil
}

// ParseFloat parses a finite float query parameter. It returns fallback if the parameter is absent.
func ParseFloat(request *restful.Request, name string, fallback float64) (float64, error) {
	value := request.QueryParameter(name)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("failed to parse %s", name))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.NotValidf("%s %v", name, f)
	}
	return f, nil
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
