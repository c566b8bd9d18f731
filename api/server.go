// Package api exposes the game over HTTP. Handlers stay thin: they bind
// input, call into the core packages and the store, and translate typed
// errors into status codes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cloudbudget/advice"
	"cloudbudget/core/rates"
	"cloudbudget/internal/config"
	"cloudbudget/internal/logging"
	"cloudbudget/store"
)

// Server wires the HTTP surface to the store and the core engine.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	rates  *rates.Cache
	advice *advice.Client
	router *gin.Engine
	cron   *cron.Cron
}

// NewServer assembles the router and its dependencies.
func NewServer(cfg *config.Config, st *store.Store, adviceClient *advice.Client) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		rates:  rates.NewCache(st),
		advice: adviceClient,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", s.health)

	play := router.Group("/play")
	{
		play.POST("/create", s.createGame)
		play.GET("/games", s.requireAuth, s.getLatestGame)
		play.GET("/scenarioes", s.requireAuth, s.getScenarioIndex)
		play.PUT("/struct/:gameID", s.requireAuth, s.updateStruct)
		play.POST("/report/:gameID", s.requireAuth, s.report)
	}

	router.GET("/costs", s.getCosts)
	router.POST("/costs/calculate", s.calculateCosts)

	router.GET("/scenarios", s.listScenarios)
	router.GET("/scenarios/:id", s.getScenario)
	router.GET("/scenarios/:id/month/:month", s.getScenarioMonth)
	router.GET("/scenarios/:id/calculate-cost/:month", s.previewScenarioCost)
	router.GET("/features/:id", s.getFeature)

	share := router.Group("/share")
	{
		share.GET("/structures", s.listSharedStructures)
		share.GET("/structure/:id", s.getSharedStructure)
		share.PUT("/structure/:id", s.requireAuth, s.updateSharedStructure)
		share.POST("/publish/:id", s.requireAuth, s.publishStructure)
	}

	router.POST("/advice", s.requireAuth, s.getAdvice)

	s.router = router
	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests. It also
// starts the periodic rate-table cache refresh.
func (s *Server) Run(ctx context.Context) error {
	if schedule := s.cfg.Rates.RefreshSchedule; schedule != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(schedule, func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.rates.Refresh(refreshCtx); err != nil {
				logging.Warn("scheduled rate refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
