package http

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/http/router"
	"github.com/lintang-b-s/olrwebtool/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/olrwebtool/pkg/http/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the API until ctx is canceled or the listener fails.
func (s *Server) Use(
	ctx context.Context,
	useRateLimit bool,
	decodeService controllers.DecodeService,
	networkService controllers.NetworkService,
	analysisService controllers.AnalysisService,
) error {
	config := http_server.Config{
		Port:    viper.GetInt("API_PORT"),
		Timeout: viper.GetDuration("API_TIMEOUT"),
	}
	rateLimit := 0.0
	if useRateLimit {
		rateLimit = viper.GetFloat64("RATE_LIMIT_RPS")
	}

	api := router.NewAPI(s.Log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(gctx, config, rateLimit, decodeService, networkService, analysisService)
	})
	return g.Wait()
}
