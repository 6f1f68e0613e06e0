package usecases

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
)

type Matcher interface {
	Match(ctx context.Context, code string) (*matcher.MatchedPath, error)
	MatchWith(ctx context.Context, code string, cfg openlr.Config) (*matcher.MatchedPath, error)
}
