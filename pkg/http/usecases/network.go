package usecases

import (
	"context"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

// NetworkService answers lookups on the directed view of the stored network. Each call gets its
// own map reader.
type NetworkService struct {
	log  *zap.Logger
	rows storage.RowFetcher
}

func NewNetworkService(log *zap.Logger, rows storage.RowFetcher) *NetworkService {
	return &NetworkService{log: log, rows: rows}
}

func (ns *NetworkService) reader() *mapreader.WebToolMapReader {
	return mapreader.NewWebToolMapReader(ns.rows, ns.log)
}

func (ns *NetworkService) Line(ctx context.Context, id string) (*datastructure.DirectedLine, error) {
	lineID, err := datastructure.ParseLineID(id)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "line id %q", id)
	}
	return ns.reader().GetLine(ctx, lineID)
}

func (ns *NetworkService) LinesNear(ctx context.Context, lat, lon, radius float64) ([]*datastructure.DirectedLine, error) {
	return ns.reader().FindLinesCloseTo(ctx, geo.NewCoordinate(lat, lon), radius)
}

func (ns *NetworkService) NodesNear(ctx context.Context, lat, lon, radius float64) ([]datastructure.StoredNode, error) {
	return ns.reader().FindNodesCloseTo(ctx, geo.NewCoordinate(lat, lon), radius)
}

// OutgoingLines fails with a not found error for unknown nodes so that callers can tell them
// apart from dead ends.
func (ns *NetworkService) OutgoingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error) {
	rdr := ns.reader()
	if _, err := rdr.GetNode(ctx, node); err != nil {
		return nil, err
	}
	return rdr.OutgoingLines(ctx, node)
}

func (ns *NetworkService) IncomingLines(ctx context.Context, node int64) ([]*datastructure.DirectedLine, error) {
	rdr := ns.reader()
	if _, err := rdr.GetNode(ctx, node); err != nil {
		return nil, err
	}
	return rdr.IncomingLines(ctx, node)
}

// Health counts the stored rows when the storage driver supports counting.
func (ns *NetworkService) Health(ctx context.Context) (roads, nodes int64, counted bool, err error) {
	return ns.reader().Count(ctx)
}
