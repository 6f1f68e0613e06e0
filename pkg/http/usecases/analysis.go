package usecases

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/analysis"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

type AnalysisService struct {
	log      *zap.Logger
	analyzer *analysis.Analyzer
}

func NewAnalysisService(log *zap.Logger, analyzer *analysis.Analyzer) *AnalysisService {
	return &AnalysisService{log: log, analyzer: analyzer}
}

// Analyze compares the decoded reference with path, a WKT LINESTRING or a Google polyline.
func (as *AnalysisService) Analyze(ctx context.Context, code, path string) (*analysis.Report, error) {
	source, err := geo.ParsePath(path)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "source path")
	}
	return as.analyzer.Analyze(ctx, code, source)
}
