// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/mlnoga/imgedit/internal/colorconv"
	"github.com/mlnoga/imgedit/internal/config"
	"github.com/mlnoga/imgedit/internal/doc"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
	_ "github.com/mlnoga/imgedit/internal/ops/channels" // register operators
	_ "github.com/mlnoga/imgedit/internal/ops/geom"
	"github.com/mlnoga/imgedit/internal/ops/tone"
)

// HTTP front end over a document store
type Server struct {
	Store    *doc.Store
	Config   *config.Config
	Log      io.Writer
	MemoryMB int // physical memory, used for the per-image budget
}

func NewServer(cfg *config.Config, log io.Writer) *Server {
	if log == nil {
		log = io.Discard
	}
	return &Server{
		Store:    doc.NewStore(cfg.Cache.PreviewMB*1024*1024, log),
		Config:   cfg,
		Log:      log,
		MemoryMB: ops.NewContext(log).MemoryMB,
	}
}

// Sets up the routes, wrapped in CORS handling
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.Log), gin.Recovery())
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/operators", getOperators)
			v1.GET("/docs", s.getDocs)
			v1.POST("/docs", s.postDoc)
			v1.GET("/docs/:id", s.getDoc)
			v1.DELETE("/docs/:id", s.deleteDoc)
			v1.GET("/docs/:id/image", s.getImage)
			v1.GET("/docs/:id/histogram", s.getHistogram)
			v1.POST("/docs/:id/ops", s.postOps)
			v1.POST("/docs/:id/stash", s.postStash)
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.Config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"ETag", "X-Document-Version"},
	})
	return c.Handler(r)
}

// Sandboxes the process if configured, then listens until the server fails
func Serve(cfg *config.Config, log io.Writer) error {
	s := NewServer(cfg, log)
	if err := MakeSandbox(cfg.Server.Chroot, cfg.Server.Setuid, s.Log); err != nil {
		return err
	}
	fmt.Fprintf(s.Log, "Listening on %s with %d threads\n", cfg.Server.Address, cfg.Threads())
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: s.Handler(),
	}
	return srv.ListenAndServe()
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getOperators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operators": ops.OperatorTypes()})
}

// Maps processing errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, doc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, doc.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ops.ErrForbiddenPath):
		return http.StatusForbidden
	case errors.Is(err, grid.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, grid.ErrInvalidDimension), errors.Is(err, grid.ErrChannelMismatch),
		errors.Is(err, grid.ErrOutOfRange), errors.Is(err, grid.ErrInvalidSample):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) getDocs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"docs": s.Store.List()})
}

// Creates a document from an image in the request body
func (s *Server) postDoc(c *gin.Context) {
	limit := int64(s.Config.Server.MaxUploadMB) * 1024 * 1024
	body := c.Request.Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Writer, body, limit)
	}
	name := c.DefaultQuery("name", "upload")
	d, err := s.Store.AddFromReader(name, body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			abortWithError(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, d.Info())
}

func (s *Server) getDoc(c *gin.Context) {
	d, err := s.Store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, d.Info())
}

func (s *Server) deleteDoc(c *gin.Context) {
	if err := s.Store.Delete(c.Param("id")); err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Returns the current image encoded as png, jpeg or tiff
func (s *Server) getImage(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "png"))
	switch format {
	case "png", "jpeg", "tiff":
	case "jpg":
		format = "jpeg"
	case "tif":
		format = "tiff"
	default:
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("unknown image format %s", format))
		return
	}
	bs, version, err := s.Store.Encoded(c.Param("id"), format)
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	etag := fmt.Sprintf("\"%s-%d-%s\"", c.Param("id"), version, format)
	c.Header("ETag", etag)
	c.Header("X-Document-Version", strconv.FormatUint(version, 10))
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, grid.ContentType(format), bs)
}

// Returns the histogram of a channel of the current image
func (s *Server) getHistogram(c *gin.Context) {
	d, err := s.Store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	channel, err := tone.ParseChannel(c.Query("channel"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	luma, err := colorconv.ParseLumaMode(c.Query("luma"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	g, version := d.Current()
	h, err := tone.ChannelHistogram(g, channel, luma, s.Config.Threads())
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	lo, hi := h.Range()
	c.JSON(http.StatusOK, gin.H{
		"version":    version,
		"depth":      int(h.Depth),
		"bins":       h.Bins,
		"cumulative": h.CumSum(),
		"min":        lo,
		"max":        hi,
	})
}

// Execution context for operators run on behalf of a request
func (s *Server) newContext(log io.Writer) *ops.Context {
	return &ops.Context{
		Log:           log,
		MemoryMB:      s.MemoryMB,
		ImageMemoryMB: int(float64(s.MemoryMB) * s.Config.Processing.MemoryFraction),
		MaxThreads:    s.Config.Threads(),
		RestrictPaths: s.Config.Server.RestrictPaths,
	}
}

// Applies an operator, or a sequence of them, given as JSON in the request body
func (s *Server) postOps(c *gin.Context) {
	d, err := s.Store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	op, err := ops.NewOperatorFromJSON(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := printArgs(s.Log, d.ID+": Applying ", "\n", op); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	buf := bytes.Buffer{}
	ctx := s.newContext(io.MultiWriter(&buf, s.Log))
	if _, err := d.Apply(op, ctx); err != nil {
		c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error(), "log": buf.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"doc": d.Info(), "log": buf.String()})
}

func (s *Server) postStash(c *gin.Context) {
	d, err := s.Store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	if err := d.Stash(); err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, d.Info())
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.Marshal(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}
