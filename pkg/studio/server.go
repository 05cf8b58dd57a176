// Package studio serves the boxel mini-IDE backend: file editing over a
// project workspace, builds through the bundler, a preview of the last
// bundle, build history and metrics.
package studio

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"

	"github.com/chazu/boxel/pkg/budget"
	"github.com/chazu/boxel/pkg/bundler"
	"github.com/chazu/boxel/pkg/project"
)

// Options configure a Server.
type Options struct {
	// Dir, when set, receives every file written or deleted through the API.
	Dir          string
	Bundler      bundler.Options
	MaxSizeKB    float64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AccessLog enables the request logger middleware.
	AccessLog bool
	Logger    *slog.Logger
}

// Server is the studio backend for one workspace.
type Server struct {
	ws      *project.Workspace
	history *History
	metrics *Metrics
	opts    Options
	log     *slog.Logger
	app     *fiber.App

	// buildMu serialises builds; last and lastRev are guarded by it.
	buildMu sync.Mutex
	last    *BuildResponse
	lastRev uint64
}

// BuildResponse is the result of POST /api/build.
type BuildResponse struct {
	ID              string                            `json:"id"`
	Revision        uint64                            `json:"revision"`
	Entry           string                            `json:"entry"`
	Modules         []string                          `json:"modules"`
	Stylesheets     []string                          `json:"stylesheets"`
	Warnings        []bundler.ImportResolutionWarning `json:"warnings"`
	TransformErrors []bundler.TransformError          `json:"transformErrors"`
	Size            budget.Report                     `json:"size"`
	DurationMS      int64                             `json:"durationMs"`

	html string
}

// New returns a Server over ws. history may be nil to disable recording.
func New(ws *project.Workspace, history *History, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		ws:      ws,
		history: history,
		metrics: NewMetrics(),
		opts:    opts,
		log:     opts.Logger.With("component", "studio"),
	}
	s.app = s.routes()
	return s
}

// App returns the fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until the listener fails.
func (s *Server) Listen(addr string) error {
	s.log.Info("studio listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		AppName:      "boxel studio",
	})

	// ------------------------------------------------------------------
	// Global Middleware
	// ------------------------------------------------------------------

	app.Use(recover.New())
	if s.opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	// ------------------------------------------------------------------
	// Routes
	// ------------------------------------------------------------------

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "revision": s.ws.Revision()})
	})

	app.Get("/api/files", s.listFiles)
	app.Get("/api/files/*", s.readFile)
	app.Put("/api/files/*", s.writeFile)
	app.Delete("/api/files/*", s.deleteFile)

	app.Post("/api/build", s.buildHandler)
	app.Get("/api/builds", s.listBuilds)
	app.Get("/preview", s.preview)

	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	return app
}

// ---------------------------------------------------------------------------
// File handlers
// ---------------------------------------------------------------------------

func (s *Server) listFiles(c fiber.Ctx) error {
	paths, err := s.ws.Paths()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	if paths == nil {
		paths = []string{}
	}
	return c.JSON(fiber.Map{"files": paths, "revision": s.ws.Revision()})
}

func (s *Server) readFile(c fiber.Ctx) error {
	b, err := s.ws.Read(c.Params("*"))
	if err != nil {
		return fileError(c, err)
	}
	c.Set("Content-Type", "text/plain; charset=utf-8")
	return c.Send(b)
}

func (s *Server) writeFile(c fiber.Ctx) error {
	p := c.Params("*")
	if err := s.ws.Write(p, append([]byte(nil), c.Body()...)); err != nil {
		return fileError(c, err)
	}
	if s.opts.Dir != "" {
		if err := s.ws.Persist(s.opts.Dir, p); err != nil {
			return fiberError(c, fiber.StatusInternalServerError, err)
		}
	}
	return c.JSON(fiber.Map{"revision": s.ws.Revision()})
}

func (s *Server) deleteFile(c fiber.Ctx) error {
	p := c.Params("*")
	if err := s.ws.Remove(p); err != nil {
		return fileError(c, err)
	}
	if s.opts.Dir != "" {
		if err := project.Unpersist(s.opts.Dir, p); err != nil {
			return fiberError(c, fiber.StatusInternalServerError, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func fileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, project.ErrInvalidPath):
		return fiberError(c, fiber.StatusBadRequest, err)
	case errors.Is(err, fs.ErrNotExist):
		return fiberError(c, fiber.StatusNotFound, err)
	}
	return fiberError(c, fiber.StatusInternalServerError, err)
}

func fiberError(c fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// ---------------------------------------------------------------------------
// Builds
// ---------------------------------------------------------------------------

// Build bundles the current workspace. Builds are serialised; the result is
// kept for /preview.
func (s *Server) Build(ctx context.Context) (*BuildResponse, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.build(ctx)
}

func (s *Server) build(ctx context.Context) (*BuildResponse, error) {
	started := time.Now()
	rec := BuildRecord{ID: uuid.NewString(), StartedAt: started.UTC(), Status: StatusOK}

	resp, err := s.bundle(ctx)
	rec.DurationMS = time.Since(started).Milliseconds()
	warnings := 0
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
	} else {
		resp.ID = rec.ID
		resp.DurationMS = rec.DurationMS
		rec.Bytes = len(resp.html)
		rec.Revision = resp.Revision
		warnings = len(resp.Warnings) + len(resp.TransformErrors)
		s.last, s.lastRev = resp, resp.Revision
	}

	s.metrics.observe(rec, warnings)
	if s.history != nil {
		if herr := s.history.Record(ctx, rec); herr != nil {
			s.log.Warn("record build", "err", herr)
		}
	}
	if err != nil {
		s.log.Warn("build failed", "id", rec.ID, "err", err)
		return nil, err
	}
	s.log.Info("build finished", "id", rec.ID, "bytes", rec.Bytes, "status", resp.Size.Status)
	return resp, nil
}

func (s *Server) bundle(ctx context.Context) (*BuildResponse, error) {
	files, rev, err := s.ws.Files()
	if err != nil {
		return nil, err
	}
	m, _, err := project.FindManifest(files)
	if err != nil {
		return nil, err
	}

	opts := s.opts.Bundler
	if m.Entry != "" && opts.Entry == "" {
		opts.Entry = m.Entry
	}
	if len(m.Libraries) > 0 {
		libs := make(map[string]string, len(opts.Libraries)+len(m.Libraries))
		for k, v := range opts.Libraries {
			libs[k] = v
		}
		for k, v := range m.Libraries {
			libs[k] = v
		}
		opts.Libraries = libs
	}

	res, err := bundler.New(opts, s.log).Bundle(ctx, files, m.InscriptionMap())
	if err != nil {
		return nil, err
	}
	return &BuildResponse{
		Revision:        rev,
		Entry:           res.Entry,
		Modules:         res.Modules,
		Stylesheets:     res.Stylesheets,
		Warnings:        res.Warnings,
		TransformErrors: res.TransformErrors,
		Size:            budget.MeasureHTML(res.HTML, s.opts.MaxSizeKB),
		html:            res.HTML,
	}, nil
}

func (s *Server) buildHandler(c fiber.Ctx) error {
	resp, err := s.Build(c.Context())
	if err != nil {
		var notFound *bundler.EntryNotFoundError
		if errors.As(err, &notFound) {
			return fiberError(c, fiber.StatusUnprocessableEntity, err)
		}
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(resp)
}

func (s *Server) listBuilds(c fiber.Ctx) error {
	if s.history == nil {
		return c.JSON(fiber.Map{"builds": []BuildRecord{}})
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	builds, err := s.history.List(c.Context(), limit)
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"builds": builds})
}

// preview serves the last bundle, rebuilding first when the workspace has
// changed since.
func (s *Server) preview(c fiber.Ctx) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if s.last == nil || s.lastRev != s.ws.Revision() {
		if _, err := s.build(c.Context()); err != nil {
			return fiberError(c, fiber.StatusUnprocessableEntity, err)
		}
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	c.Set("X-Boxel-Build", s.last.ID)
	return c.SendString(s.last.html)
}
