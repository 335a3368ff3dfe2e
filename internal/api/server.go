// Package api serves the maintenance JSON API over gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/analytics"
	"github.com/primefragrance/cmms/internal/auth"
	"github.com/primefragrance/cmms/internal/photo"
	"github.com/primefragrance/cmms/internal/schedule"
	"github.com/primefragrance/cmms/internal/workorder"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxBodyBytes caps request bodies, uploads included.
const DefaultMaxBodyBytes = 16 << 20

// Deps are the services the API routes to.
type Deps struct {
	DB         *gorm.DB
	Auth       *auth.Service
	WorkOrders *workorder.Service
	Schedules  *schedule.Service
	Analytics  *analytics.Service
	Photos     photo.Store
	Logger     *zap.Logger
	Now        func() time.Time
	Location   *time.Location

	// Debug exposes internal error text in responses.
	Debug        bool
	MaxBodyBytes int64
}

func (d Deps) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("api: db is required")
	case d.Auth == nil:
		return errors.New("api: auth service is required")
	case d.WorkOrders == nil:
		return errors.New("api: work order service is required")
	case d.Schedules == nil:
		return errors.New("api: schedule service is required")
	case d.Analytics == nil:
		return errors.New("api: analytics service is required")
	case d.Photos == nil:
		return errors.New("api: photo store is required")
	}
	return nil
}

type server struct {
	Deps
	log *zap.Logger
}

func (s *server) loc() *time.Location { return s.Location }

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) (*gin.Engine, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &server{Deps: d, log: d.Logger.Named("api")}

	router := gin.New()
	router.MaxMultipartMemory = d.MaxBodyBytes
	router.Use(RequestID(), Logger(s.log), gin.CustomRecovery(s.recovered))
	router.Use(gzip.Gzip(gzip.DefaultCompression), BodyLimit(d.MaxBodyBytes))
	s.registerRoutes(router)
	return router, nil
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Out             io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 5000
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	router, err := NewRouter(opts.Deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "CMMS API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
