package openlr

import (
	"context"
	"math"
	"slices"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
)

// a candidate closer than this to the end of its line cannot start a route.
const lineEndEpsilon = 0.01

// Candidate is a line an LRP may lie on. Offset is measured from the start of the line in
// stored length units.
type Candidate struct {
	Line   *datastructure.DirectedLine
	Offset float64
	Score  float64
}

func (c Candidate) remaining() float64 {
	return c.Line.Length - c.Offset
}

func (d *Dereferencer) candidates(ctx context.Context, rdr mapreader.MapReader, lrp LRP, isLast bool) ([]Candidate, error) {
	lines, err := rdr.FindLinesCloseTo(ctx, lrp.Coord, d.cfg.SearchRadius)
	if err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(lines))
	for _, line := range lines {
		c, ok := d.rate(line, lrp, isLast)
		if ok {
			cands = append(cands, c)
		}
	}

	slices.SortStableFunc(cands, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.Line.ID.Less(b.Line.ID):
			return -1
		case b.Line.ID.Less(a.Line.ID):
			return 1
		}
		return 0
	})
	if d.cfg.MaxCandidates > 0 && len(cands) > d.cfg.MaxCandidates {
		cands = cands[:d.cfg.MaxCandidates]
	}
	return cands, nil
}

func (d *Dereferencer) rate(line *datastructure.DirectedLine, lrp LRP, isLast bool) (Candidate, bool) {
	proj := geo.ProjectOntoPath(line.Geometry, lrp.Coord)
	if proj.Distance > d.cfg.SearchRadius {
		return Candidate{}, false
	}

	geomLen := line.GeometryLength()
	offset := 0.0
	if geomLen > 0 {
		offset = util.Clamp(proj.Along*line.Length/geomLen, 0, line.Length)
	}
	c := Candidate{Line: line, Offset: offset}

	var bearing float64
	if isLast {
		if offset < lineEndEpsilon {
			return Candidate{}, false
		}
		// the last LRP bearing points back along the location.
		bearing = geo.PathBearing(geo.ReversePath(line.Geometry), geomLen-proj.Along, d.cfg.BearingDistance)
	} else {
		if c.remaining() < lineEndEpsilon {
			return Candidate{}, false
		}
		bearing = geo.PathBearing(line.Geometry, proj.Along, d.cfg.BearingDistance)
	}
	bearDev := util.AngleDifference(bearing, lrp.Bearing)
	if bearDev > d.cfg.MaxBearingDeviation {
		return Candidate{}, false
	}

	geoScore := 1 - proj.Distance/d.cfg.SearchRadius
	frcScore := 1 - math.Abs(float64(lrp.FRC)-float64(line.FRC))/7
	fowScore := d.cfg.FOWStandIn[lrp.FOW&0x07][line.FOW&0x07]
	bearScore := 1 - bearDev/180

	c.Score = d.cfg.GeoWeight*geoScore + d.cfg.FRCWeight*frcScore +
		d.cfg.FOWWeight*fowScore + d.cfg.BearingWeight*bearScore
	if c.Score < d.cfg.MinScore {
		return Candidate{}, false
	}
	return c, true
}
