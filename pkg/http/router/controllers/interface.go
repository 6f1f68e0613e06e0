package controllers

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/analysis"
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
)

type DecodeService interface {
	Decode(ctx context.Context, code, profile string) (*matcher.MatchedPath, error)
}

type NetworkService interface {
	Line(ctx context.Context, id string) (*datastructure.DirectedLine, error)
	LinesNear(ctx context.Context, lat, lon, radius float64) ([]*datastructure.DirectedLine, error)
	NodesNear(ctx context.Context, lat, lon, radius float64) ([]datastructure.StoredNode, error)
	OutgoingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error)
	IncomingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error)
	Health(ctx context.Context) (roads, nodes int64, counted bool, err error)
}

type AnalysisService interface {
	Analyze(ctx context.Context, code, path string) (*analysis.Report, error)
}
