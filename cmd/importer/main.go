package main

import (
	"context"
	"flag"
	"os"

	"github.com/lintang-b-s/olrwebtool/pkg/logger"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/badgerstore"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/memory"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config", "./data", "directory holding config.yaml")
	input     = flag.String("in", "", "GeoJSON network, defaults to GEOJSON_PATH")
	output    = flag.String("out", "", "badger directory, defaults to BADGER_PATH")
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

	in, out := *input, *output
	if in == "" {
		in = viper.GetString("GEOJSON_PATH")
	}
	if out == "" {
		out = viper.GetString("BADGER_PATH")
	}

	data, err := os.ReadFile(in)
	if err != nil {
		logger.Fatal("read network", zap.String("path", in), zap.Error(err))
	}
	roads, nodes, err := memory.DecodeFeatures(data)
	if err != nil {
		logger.Fatal("decode network", zap.String("path", in), zap.Error(err))
	}

	store, err := badgerstore.Open(out, false, logger)
	if err != nil {
		logger.Fatal("open badger", zap.String("path", out), zap.Error(err))
	}
	defer store.Close()

	if err := store.Import(context.Background(), roads, nodes); err != nil {
		logger.Error("import", zap.Error(err))
		return
	}
	r, n, _ := store.Count(context.Background())
	logger.Info("network imported", zap.String("path", out), zap.Int64("roads", r), zap.Int64("nodes", n))
}
