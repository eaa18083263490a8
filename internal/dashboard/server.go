package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"airdemand/config"
	"airdemand/internal/analytics"
	"airdemand/internal/metrics"
	"airdemand/logger"
	"airdemand/models"
	"airdemand/provider"
	"airdemand/writer"
)

//go:embed templates/*.tmpl assets/*
var embeddedFS embed.FS

// Searcher runs queries and remembers the latest committed result.
type Searcher interface {
	Search(ctx context.Context, q models.Query) (*provider.Result, error)
	Current() *provider.Result
}

// Server hosts the market dashboard and its JSON/CSV API.
type Server struct {
	cfg           config.DashboardConfig
	query         config.QueryConfig
	appName       string
	session       Searcher
	collector     *metrics.Collector
	log           *logger.Log
	metricStore   *metricStore
	logStore      *logStore
	metricHandler metrics.MetricHandlerID
	httpServer    *http.Server
}

// Options carries the collaborators of a Server.
type Options struct {
	AppName   string
	Query     config.QueryConfig
	Session   Searcher
	Collector *metrics.Collector
	Logger    *logger.Log
}

// NewServer constructs a dashboard server when the dashboard feature is enabled.
// When the dashboard is disabled the returned server will be nil.
func NewServer(cfg config.DashboardConfig, opts Options) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if opts.Session == nil {
		return nil, errors.New("dashboard requires a search session")
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.AppName == "" {
		opts.AppName = "airdemand"
	}
	if opts.Query.DefaultOrigin == "" {
		opts.Query.DefaultOrigin = "JFK"
	}
	if opts.Query.DefaultDestination == "" {
		opts.Query.DefaultDestination = "LAX"
	}

	metricStore := newMetricStore(cfg.History)
	logStore := newLogStore(cfg.History)
	log.AddHook(logStore)

	return &Server{
		cfg:           cfg,
		query:         opts.Query,
		appName:       opts.AppName,
		session:       opts.Session,
		collector:     opts.Collector,
		log:           log,
		metricStore:   metricStore,
		logStore:      logStore,
		metricHandler: metrics.RegisterMetricHandler(metricStore.handle),
	}, nil
}

// Run starts the dashboard HTTP server and blocks until the provided context is
// cancelled or the underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := s.log.WithComponent("dashboard")
	log.WithField("address", s.cfg.Address).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		log.Info("dashboard stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	if s.logStore != nil {
		s.logStore.close()
	}
}

// Address reports the network address the dashboard server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("dashboard").ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	if assetsFS, err := fsSub("assets"); err == nil {
		router.StaticFS("/assets", http.FS(assetsFS))
	}

	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.tmpl", gin.H{
			"AppName":            s.appName,
			"DefaultOrigin":      s.query.DefaultOrigin,
			"DefaultDestination": s.query.DefaultDestination,
		})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/market", s.handleMarket)
	api.GET("/market/current", s.handleCurrent)
	api.GET("/market/export.csv", s.handleExport)
	api.GET("/activity", s.handleActivity)

	if s.collector != nil {
		router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}

	return router, nil
}

// marketResponse is the JSON body of a successful market query.
type marketResponse struct {
	RequestID   string             `json:"request_id"`
	Query       models.Query       `json:"query"`
	Source      string             `json:"source"`
	CompletedAt time.Time          `json:"completed_at"`
	Data        *models.MarketData `json:"data"`
	Derived     analytics.Derived  `json:"derived"`
}

func newMarketResponse(res *provider.Result) marketResponse {
	return marketResponse{
		RequestID:   res.RequestID,
		Query:       res.Query,
		Source:      res.Source,
		CompletedAt: res.CompletedAt,
		Data:        res.Data,
		Derived:     analytics.Derive(*res.Data),
	}
}

func (s *Server) handleMarket(c *gin.Context) {
	res, ok := s.search(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newMarketResponse(res))
}

func (s *Server) handleCurrent(c *gin.Context) {
	res := s.session.Current()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no market data has been loaded yet"})
		return
	}
	c.JSON(http.StatusOK, newMarketResponse(res))
}

// handleExport writes the route table as CSV. Without origin and destination
// it exports the current result rather than running a new query.
func (s *Server) handleExport(c *gin.Context) {
	var res *provider.Result
	if c.Query("origin") == "" && c.Query("destination") == "" {
		res = s.session.Current()
		if res == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no market data has been loaded yet"})
			return
		}
	} else {
		var ok bool
		if res, ok = s.search(c); !ok {
			return
		}
	}

	routes := res.Data.Routes
	if col, ok := analytics.ParseSortColumn(c.Query("sort")); ok {
		desc, _ := strconv.ParseBool(c.DefaultQuery("desc", "false"))
		routes = analytics.SortRoutes(routes, col, desc)
	}

	filename := strings.ToLower(res.Query.String()) + "-routes.csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := writer.WriteCSV(c.Writer, routes); err != nil {
		s.log.WithComponent("dashboard").WithError(err).Error("failed to write csv export")
	}
}

func (s *Server) handleActivity(c *gin.Context) {
	metricsSnapshot := s.metricStore.snapshot()
	metricPayload := make([]gin.H, 0, len(metricsSnapshot))
	for _, m := range metricsSnapshot {
		metricPayload = append(metricPayload, gin.H{
			"timestamp": m.Timestamp.Format(time.RFC3339Nano),
			"component": m.Component,
			"name":      m.Name,
			"value":     m.Value,
			"type":      m.Type,
			"fields":    m.Fields,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"metrics": metricPayload,
		"logs":    s.logStore.snapshot(),
	})
}

// statusClientClosedRequest is the non-standard status logged when the
// client went away before the search finished.
const statusClientClosedRequest = 499

// search runs the query named by the request and writes the error response
// itself when it fails.
func (s *Server) search(c *gin.Context) (*provider.Result, bool) {
	q, err := models.NewQuery(c.Query("origin"), c.Query("destination"), s.query.NormalizeICAO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	res, err := s.session.Search(c.Request.Context(), q)
	if err == nil {
		return res, true
	}

	log := s.log.WithComponent("dashboard").WithField("query", q.String())
	var genErr *provider.GenerationError
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("search canceled by client")
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, provider.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &genErr):
		log.WithField("reason", genErr.Reason).Warn("market data generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": provider.FailureMessage})
	default:
		log.WithError(err).Error("search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": provider.FailureMessage})
	}
	return nil, false
}

func fsSub(path string) (fs.FS, error) {
	sub, err := fs.Sub(embeddedFS, path)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
