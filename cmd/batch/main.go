package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/olrwebtool/pkg/batch"
	"github.com/lintang-b-s/olrwebtool/pkg/logger"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/driver"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config", "./data", "directory holding config.yaml")
	input     = flag.String("in", "./data/codes.txt", "file with one base64 location reference per line, .bz2 allowed")
	output    = flag.String("out", "./data/decoded.tsv", "TSV report, compressed when it ends in .bz2")
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

	runner := batch.NewRunner(m, batch.ConfigFromViper(), logger)
	stats, err := runner.RunFile(ctx, *input, *output)
	if err != nil {
		logger.Error("batch aborted", zap.Error(err), zap.Int("attempts", stats.Attempts))
		return
	}
	logger.Sugar().Infof("decoded %d references: %d matched, %d failed", stats.Attempts, stats.Successes, stats.Failures)
}
