// Package driver opens the RowFetcher selected by STORAGE_DRIVER.
package driver

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/badgerstore"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/memory"
	"github.com/lintang-b-s/olrwebtool/pkg/storage/postgis"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	Memory  = "memory"
	Badger  = "badger"
	PostGIS = "postgis"
)

// Open reads the storage keys from viper and opens the matching fetcher.
func Open(ctx context.Context, log *zap.Logger) (storage.RowFetcher, error) {
	driver := viper.GetString("STORAGE_DRIVER")
	log = log.With(zap.String("storage", driver))

	var (
		rows storage.RowFetcher
		err  error
	)
	switch driver {
	case Memory:
		var s *memory.Store
		s, err = memory.LoadGeoJSON(viper.GetString("GEOJSON_PATH"), log)
		rows = s
	case Badger:
		var s *badgerstore.Store
		s, err = badgerstore.Open(viper.GetString("BADGER_PATH"), true, log)
		rows = s
	case PostGIS:
		var s *postgis.Store
		s, err = postgis.Open(ctx, postgis.Config{
			DSN:          viper.GetString("POSTGIS_DSN"),
			Schema:       viper.GetString("POSTGIS_SCHEMA"),
			LinesTable:   viper.GetString("LINES_TABLE"),
			NodesTable:   viper.GetString("NODES_TABLE"),
			QueryTimeout: viper.GetDuration("QUERY_TIMEOUT"),
		}, log)
		rows = s
	default:
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown storage driver %q", driver)
	}
	if err != nil {
		// a typed nil store must not leak out as a non-nil RowFetcher.
		return nil, err
	}
	return rows, nil
}
