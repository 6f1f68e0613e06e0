package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/olrwebtool/pkg/analysis"
	"github.com/lintang-b-s/olrwebtool/pkg/logger"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/driver"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config", "./data", "directory holding config.yaml")
	input     = flag.String("in", "./data/references.tsv", "code<TAB>path lines, path as WKT LINESTRING or encoded polyline, .bz2 allowed")
	output    = flag.String("out", "./data/analysis.tsv", "TSV report, compressed when it ends in .bz2")
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

	a := analysis.NewFromViper(m, rows, logger)
	sum, err := a.RunFile(ctx, *input, *output)
	if err != nil {
		logger.Error("analysis aborted", zap.Error(err))
		return
	}
	for r, n := range sum.Results {
		logger.Info("analysis result", zap.Stringer("result", r), zap.Int("count", n))
	}
	logger.Info("analysis done", zap.Float64("buffer", a.Buffer()), zap.Int("failed", sum.Failed))
}
