// Package openlr decodes OpenLR location references against a map reader.
package openlr

import (
	"context"
	"errors"
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
	"go.uber.org/zap"
)

var (
	ErrNoCandidatesFound = errors.New("no candidates found")
	ErrNoMatchFound      = errors.New("no match found")
)

// Decoder resolves a location reference on a map.
type Decoder interface {
	Decode(ctx context.Context, rdr mapreader.MapReader, ref *LocationReference) (Location, error)
}

// Dereferencer rates candidate lines around every LRP and connects consecutive candidates with
// shortest routes whose length agrees with the DNP.
type Dereferencer struct {
	cfg Config
	log *zap.Logger
}

func NewDereferencer(cfg Config, log *zap.Logger) *Dereferencer {
	return &Dereferencer{cfg: cfg, log: log}
}

func (d *Dereferencer) Config() Config {
	return d.cfg
}

func (d *Dereferencer) Decode(ctx context.Context, rdr mapreader.MapReader, ref *LocationReference) (Location, error) {
	switch ref.Type {
	case GeoCoordinateType:
		return &GeoCoordinate{Coord: ref.Coordinate}, nil
	case LineLocationType:
		return d.decodeLine(ctx, rdr, ref)
	case PointAlongLineType:
		return d.decodePointAlongLine(ctx, rdr, ref)
	}
	return nil, fmt.Errorf("%w: unknown location type %d", ErrInvalidReference, ref.Type)
}

func (d *Dereferencer) decodeLine(ctx context.Context, rdr mapreader.MapReader, ref *LocationReference) (*LineLocation, error) {
	if len(ref.Points) < 2 {
		return nil, fmt.Errorf("%w: %d points", ErrInvalidReference, len(ref.Points))
	}

	cands := make([][]Candidate, len(ref.Points))
	for i, lrp := range ref.Points {
		c, err := d.candidates(ctx, rdr, lrp, i == len(ref.Points)-1)
		if err != nil {
			return nil, err
		}
		if len(c) == 0 {
			return nil, fmt.Errorf("%w: lrp %d at %.6f,%.6f (%s)", ErrNoCandidatesFound, i, lrp.Coord.Lat, lrp.Coord.Lon, d.cfg)
		}
		d.log.Debug("lrp candidates", zap.Int("lrp", i), zap.Int("count", len(c)))
		cands[i] = c
	}

	for _, first := range cands[0] {
		routes, err := d.matchTail(ctx, rdr, ref, cands, first, 0)
		if errors.Is(err, ErrNoMatchFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return d.assemble(ref, routes), nil
	}
	return nil, fmt.Errorf("%w (%s)", ErrNoMatchFound, d.cfg)
}

// matchTail connects current, the chosen candidate of LRP idx, to the rest of the reference,
// backtracking over the candidates of the following LRPs.
func (d *Dereferencer) matchTail(ctx context.Context, rdr mapreader.MapReader, ref *LocationReference,
	cands [][]Candidate, current Candidate, idx int) ([]Route, error) {
	lrp := ref.Points[idx]
	lfrc := d.cfg.ToleratedLFRC[lrp.LFRCNP&0x07]
	maxLength := lrp.DNP + d.maxDNPError(lrp.DNP)

	for _, next := range cands[idx+1] {
		route, ok, err := d.shortestRoute(ctx, rdr, current, next, lfrc, maxLength)
		if err != nil {
			return nil, err
		}
		if !ok || !d.acceptable(route.Length, lrp.DNP) {
			continue
		}
		if idx+1 == len(ref.Points)-1 {
			return []Route{route}, nil
		}
		tail, err := d.matchTail(ctx, rdr, ref, cands, next, idx+1)
		if errors.Is(err, ErrNoMatchFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return append([]Route{route}, tail...), nil
	}
	return nil, ErrNoMatchFound
}

// assemble joins the routes and turns candidate positions and reference offsets into offsets
// on the first and last line. Lines consumed entirely by an offset are dropped.
func (d *Dereferencer) assemble(ref *LocationReference, routes []Route) *LineLocation {
	var lines []*datastructure.DirectedLine
	for i, r := range routes {
		if i > 0 {
			lines = append(lines, r.Lines[1:]...)
			continue
		}
		lines = append(lines, r.Lines...)
	}

	last := routes[len(routes)-1]
	pOff := routes[0].Start.Offset + ref.PositiveOffset
	nOff := last.End.remaining() + ref.NegativeOffset

	for len(lines) > 1 && pOff >= lines[0].Length {
		pOff -= lines[0].Length
		lines = lines[1:]
	}
	for len(lines) > 1 && nOff >= lines[len(lines)-1].Length {
		nOff -= lines[len(lines)-1].Length
		lines = lines[:len(lines)-1]
	}

	return &LineLocation{Lines: lines, PositiveOffset: max(pOff, 0), NegativeOffset: max(nOff, 0)}
}

func (d *Dereferencer) decodePointAlongLine(ctx context.Context, rdr mapreader.MapReader, ref *LocationReference) (*PointAlongLine, error) {
	lineRef := *ref
	lineRef.Type = LineLocationType
	lineRef.NegativeOffset = 0

	loc, err := d.decodeLine(ctx, rdr, &lineRef)
	if err != nil {
		return nil, err
	}

	off := loc.PositiveOffset
	line := loc.Lines[0]
	for _, l := range loc.Lines {
		line = l
		if off <= l.Length {
			break
		}
		off -= l.Length
	}
	return &PointAlongLine{
		Line:           line,
		PositiveOffset: min(off, line.Length),
		Orientation:    ref.Orientation,
		SideOfRoad:     ref.SideOfRoad,
	}, nil
}
