package usecases

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"go.uber.org/zap"
)

type DecodeService struct {
	log     *zap.Logger
	matcher Matcher
}

func NewDecodeService(log *zap.Logger, m Matcher) *DecodeService {
	return &DecodeService{log: log, matcher: m}
}

// Decode uses the configured profiles, or only the named one when profile is set.
func (ds *DecodeService) Decode(ctx context.Context, code, profile string) (*matcher.MatchedPath, error) {
	if profile == "" {
		return ds.matcher.Match(ctx, code)
	}
	cfg, err := openlr.ConfigByName(profile)
	if err != nil {
		return nil, err
	}
	return ds.matcher.MatchWith(ctx, code, cfg)
}
