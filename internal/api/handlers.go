package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/vfaronov/httpheader"

	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// API exposes a DownloadService over HTTP.
type API struct {
	service core.DownloadService
	logger  *zerolog.Logger
	token   string
}

// NewAPI creates the handler set. token may be empty to disable auth.
func NewAPI(service core.DownloadService, logger *zerolog.Logger, token string) *API {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &API{service: service, logger: logger, token: token}
}

// NewRouter builds a gin engine with the standard middleware and routes.
func NewRouter(a *API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ZerologLogger(a.logger))
	r.Use(CORS())
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers API routes on the provided gin engine.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", a.Health)

	g := router.Group("/", BearerAuth(a.token))
	{
		g.GET("/validate", a.ValidateURL)
		g.GET("/info", a.VideoInfo)
		g.POST("/download", a.StartDownload)
		g.GET("/download", a.GetStatus)
		g.GET("/history", a.History)
		g.DELETE("/history", a.ClearHistory)
		g.GET("/history/export", a.ExportHistory)
		g.GET("/stats", a.Statistics)
		g.GET("/settings", a.LoadSettings)
		g.PUT("/settings", a.SaveSettings)
		g.GET("/settings/default-path", a.DefaultPath)
		g.GET("/formats", a.Formats)
		g.GET("/qualities", a.Qualities)
		g.GET("/dependencies", a.Dependencies)
	}
}

func (a *API) fail(c *gin.Context, status int, op string, err error) {
	a.logger.Warn().Str("op", op).Err(err).Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}

func requireURL(c *gin.Context) (string, bool) {
	u := strings.TrimSpace(c.Query("url"))
	if u == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return "", false
	}
	return u, true
}

// Health reports that the daemon is up.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ValidateURL reports whether the engine accepts the url.
func (a *API) ValidateURL(c *gin.Context) {
	u, ok := requireURL(c)
	if !ok {
		return
	}
	valid, err := a.service.ValidateURL(c.Request.Context(), u)
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "validate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// VideoInfo returns engine metadata for the url.
func (a *API) VideoInfo(c *gin.Context) {
	u, ok := requireURL(c)
	if !ok {
		return
	}
	info, err := a.service.GetVideoInfo(c.Request.Context(), u)
	if err != nil {
		a.fail(c, http.StatusBadGateway, "info", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// StartDownload queues a download and returns its id.
func (a *API) StartDownload(c *gin.Context) {
	var req types.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, http.StatusBadRequest, "download", err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if err := req.Validate(); err != nil {
		a.fail(c, http.StatusBadRequest, "download", err)
		return
	}

	id, err := a.service.StartDownload(c.Request.Context(), req)
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "download", err)
		return
	}
	a.logger.Info().Str("id", id).Str("url", req.URL).Str("format", string(req.Format)).Msg("download started")
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

// GetStatus returns the history entry for ?id=, or 404.
func (a *API) GetStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}
	entry, err := a.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "status", err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (a *API) History(c *gin.Context) {
	entries, err := a.service.History(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "history", err)
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (a *API) ClearHistory(c *gin.Context) {
	if err := a.service.ClearHistory(c.Request.Context()); err != nil {
		a.fail(c, http.StatusInternalServerError, "clear history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// ExportHistory serves the history as a JSON attachment.
func (a *API) ExportHistory(c *gin.Context) {
	var buf bytes.Buffer
	name, err := a.service.ExportHistory(c.Request.Context(), &buf)
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "export", err)
		return
	}
	httpheader.SetContentDisposition(c.Writer.Header(), "attachment", name, nil)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (a *API) Statistics(c *gin.Context) {
	stats, err := a.service.Statistics(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *API) LoadSettings(c *gin.Context) {
	s, err := a.service.LoadSettings(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "load settings", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (a *API) SaveSettings(c *gin.Context) {
	var s types.AppSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		a.fail(c, http.StatusBadRequest, "save settings", err)
		return
	}
	if !s.DefaultFormat.Valid() || !s.DefaultQuality.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format or quality"})
		return
	}
	if err := a.service.SaveSettings(c.Request.Context(), s); err != nil {
		a.fail(c, http.StatusInternalServerError, "save settings", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (a *API) DefaultPath(c *gin.Context) {
	p, err := a.service.DefaultDownloadPath(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "default path", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": p})
}

func (a *API) Formats(c *gin.Context) {
	f, err := a.service.SupportedFormats(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "formats", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (a *API) Qualities(c *gin.Context) {
	q, err := a.service.SupportedQualities(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "qualities", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Dependencies reports the engine's binary lookup.
func (a *API) Dependencies(c *gin.Context) {
	st, err := a.service.CheckDependencies(c.Request.Context())
	if err != nil {
		a.fail(c, http.StatusInternalServerError, "dependencies", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
