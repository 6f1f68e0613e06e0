package util

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// SetConfigDefaults registers the default value of every configuration key.
func SetConfigDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("STORAGE_DRIVER", "memory")
	viper.SetDefault("GEOJSON_PATH", "./data/network.geojson")
	viper.SetDefault("BADGER_PATH", "./data/network.badger")
	viper.SetDefault("POSTGIS_DSN", "postgres://openlr@127.0.0.1:5432/openlr")
	viper.SetDefault("POSTGIS_SCHEMA", "local")
	viper.SetDefault("LINES_TABLE", "lines")
	viper.SetDefault("NODES_TABLE", "nodes")
	viper.SetDefault("QUERY_TIMEOUT", "5s")

	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("API_TIMEOUT", "30s")
	viper.SetDefault("RATE_LIMIT_RPS", 50.0)
	viper.SetDefault("HTTP_SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("HTTP_SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("HTTP_SERVER_IDLE_TIMEOUT", "60s")
	viper.SetDefault("HTTP_SERVER_READ_HEADER_TIMEOUT", "5s")

	viper.SetDefault("BATCH_WORKERS", 4)
	viper.SetDefault("BATCH_RATE", 0.0)
	viper.SetDefault("BATCH_PROGRESS_EVERY", 1000)
	viper.SetDefault("BATCH_MAX_LINE_BYTES", 1<<20)
	viper.SetDefault("ANALYSIS_BUFFER", 20.0)

	viper.SetDefault("DECODER_PROFILE", "strict")
	viper.SetDefault("DECODER_FALLBACK", true)
}

// ReadConfig loads config.yaml from dir on top of the defaults. Environment variables win over the file.
// A missing config file is not an error.
func ReadConfig(dir string) error {
	SetConfigDefaults()
	viper.SetConfigName("config")
	viper.AddConfigPath(dir)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
