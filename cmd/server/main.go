package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/olrwebtool/pkg/analysis"
	"github.com/lintang-b-s/olrwebtool/pkg/http"
	"github.com/lintang-b-s/olrwebtool/pkg/http/usecases"
	"github.com/lintang-b-s/olrwebtool/pkg/logger"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/driver"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir    = flag.String("config", "./data", "directory holding config.yaml")
	useRateLimit = flag.Bool("rate_limit", true, "limit requests per client to RATE_LIMIT_RPS")
)

func main() {
	flag.Parse()
	if err := util.ReadConfig(*configDir); err != nil {
		panic(err)
	}
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := driver.Open(ctx, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer rows.Close()

	m, err := matcher.NewFromViper(rows, logger)
	if err != nil {
		logger.Fatal("decoder config", zap.Error(err))
	}
	logger.Info("decoder profiles", zap.Strings("profiles", m.Profiles()))

	api := http.NewServer(logger)
	err = api.Use(ctx, *useRateLimit,
		usecases.NewDecodeService(logger, m),
		usecases.NewNetworkService(logger, rows),
		usecases.NewAnalysisService(logger, analysis.NewFromViper(m, rows, logger)))
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("OpenLR webtool server stopped")
}
