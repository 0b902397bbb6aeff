package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "fetalscan/docs"
	"fetalscan/internal/config"
	"fetalscan/internal/handler"
	"fetalscan/internal/inference"
	"fetalscan/internal/repository"
	"fetalscan/internal/service"
	"fetalscan/pkg/utils"
)

type Server struct {
	httpServer *http.Server
	uploads    service.UploadService
	cfg        *config.Config
	log        *zap.Logger
	stopSweep  context.CancelFunc
	sweepDone  chan struct{}
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	var archive repository.ArchiveRepository
	if cfg.S3.Enabled {
		s3Repo, err := repository.NewS3Repository(ctx, &cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 repository: %w", err)
		}
		archive = s3Repo
	}

	processor := utils.NewImageProcessor(cfg.Inference.MaxSide, cfg.Inference.JPEGQuality, log)
	client := inference.NewClient(&cfg.Inference, processor, log)

	predictionService := service.NewPredictionService(client, cfg.Inference.ModelID, log)
	uploadService := service.NewUploadService(archive, &cfg.App, log)

	h := handler.NewHandler(predictionService, uploadService, &cfg.App, log)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           NewRouter(h, cfg, log),
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		uploads: uploadService,
		cfg:     cfg,
		log:     log,
	}, nil
}

func NewRouter(h *handler.Handler, cfg *config.Config, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.App.MaxUploadSize
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/health", h.HealthCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	api := router.Group("/api")
	{
		api.GET("/conditions", h.GetConditions)
		api.POST("/predict", handler.BodyLimit(cfg.App.MaxUploadSize), h.Predict)
	}

	return router
}

func (s *Server) Run() error {
	s.startSweeper()

	s.log.Info("Server is running",
		zap.String("host", s.cfg.Server.Host),
		zap.String("port", s.cfg.Server.Port),
		zap.String("address", s.httpServer.Addr),
		zap.String("model_id", s.cfg.Inference.ModelID),
		zap.Bool("s3_archive", s.cfg.S3.Enabled))

	return s.httpServer.ListenAndServe()
}

// startSweeper removes leftover uploads once, then on every SweepInterval tick.
func (s *Server) startSweeper() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	s.sweepDone = make(chan struct{})

	go func() {
		defer close(s.sweepDone)
		s.sweep()

		if s.cfg.App.SweepInterval <= 0 {
			return
		}
		ticker := time.NewTicker(s.cfg.App.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Server) sweep() {
	if _, err := s.uploads.Sweep(s.cfg.App.SweepMaxAge); err != nil {
		s.log.Error("Upload sweep failed", zap.Error(err))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")

	if s.stopSweep != nil {
		s.stopSweep()
		select {
		case <-s.sweepDone:
		case <-ctx.Done():
		}
	}

	return s.httpServer.Shutdown(ctx)
}
