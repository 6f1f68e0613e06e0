// Package analysis checks whether a location reference decodes onto the path it was encoded from.
package analysis

import (
	"context"
	"errors"
	"math"

	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultBuffer = 20.0

// Matcher decodes a reference with a single profile.
type Matcher interface {
	MatchWith(ctx context.Context, code string, cfg openlr.Config) (*matcher.MatchedPath, error)
}

// Report is the outcome of one analysis. Lengths and MaxDeviation are in meters.
type Report struct {
	Code          string  `json:"code"`
	Result        Result  `json:"result"`
	Profile       string  `json:"profile,omitempty"`
	SourceLength  float64 `json:"source_length"`
	DecodedLength float64 `json:"decoded_length,omitempty"`
	MaxDeviation  float64 `json:"max_deviation,omitempty"`
	Polyline      string  `json:"polyline,omitempty"`
}

type diagnosis struct {
	cfg    func() openlr.Config
	result Result
}

// each profile drops one attribute of the strict profile, tried in this order.
var diagnoses = []diagnosis{
	{cfg: openlr.IgnoreFRCConfig, result: FRCMismatch},
	{cfg: openlr.IgnoreFOWConfig, result: FOWMismatch},
	{cfg: openlr.IgnoreBearingConfig, result: BearingMismatch},
}

type Analyzer struct {
	m      Matcher
	rows   storage.RowFetcher
	buffer float64
	log    *zap.Logger
}

// New returns an analyzer that accepts decoded paths within buffer meters of the source.
func New(m Matcher, rows storage.RowFetcher, buffer float64, log *zap.Logger) *Analyzer {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Analyzer{m: m, rows: rows, buffer: buffer, log: log}
}

func NewFromViper(m Matcher, rows storage.RowFetcher, log *zap.Logger) *Analyzer {
	return New(m, rows, viper.GetFloat64("ANALYSIS_BUFFER"), log)
}

func (a *Analyzer) Buffer() float64 {
	return a.buffer
}

// Analyze decodes code with the strict profile and compares the result with source. When the
// strict decode fails, profiles that ignore one attribute name the attribute at fault.
func (a *Analyzer) Analyze(ctx context.Context, code string, source []geo.Coordinate) (*Report, error) {
	if len(source) < 2 {
		return nil, util.WrapErrorf(geo.ErrInvalidPath, util.ErrBadParamInput, "source path has %d vertices", len(source))
	}
	ref, err := openlr.DecodeBinary(code)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid location reference %q", code)
	}

	rep := &Report{Code: code, SourceLength: geo.PathLength(source)}
	if ref.Type != openlr.LineLocationType {
		rep.Result = UnsupportedLocationType
		return rep, nil
	}

	strict := openlr.StrictConfig()
	path, err := a.m.MatchWith(ctx, code, strict)
	switch {
	case err == nil:
		a.compare(rep, strict.Name, path, source)
		return rep, nil
	case !noMatch(err):
		return nil, err
	}

	for _, d := range diagnoses {
		cfg := d.cfg()
		path, err := a.m.MatchWith(ctx, code, cfg)
		if err != nil {
			if noMatch(err) {
				continue
			}
			return nil, err
		}
		rep.Result, rep.Profile = d.result, cfg.Name
		rep.DecodedLength = path.Length
		rep.MaxDeviation = a.deviation(path.Coordinates, source)
		rep.Polyline = path.Polyline
		return rep, nil
	}

	covered, err := a.covered(ctx, source)
	if err != nil {
		return nil, err
	}
	if !covered {
		rep.Result = MissingPath
		return rep, nil
	}
	rep.Result = lengthMismatch(ref, rep.SourceLength, strict)
	return rep, nil
}

func noMatch(err error) bool {
	return errors.Is(err, openlr.ErrNoCandidatesFound) || errors.Is(err, openlr.ErrNoMatchFound)
}

func (a *Analyzer) compare(rep *Report, profile string, path *matcher.MatchedPath, source []geo.Coordinate) {
	rep.Profile = profile
	rep.DecodedLength = path.Length
	rep.Polyline = path.Polyline
	rep.MaxDeviation = a.deviation(path.Coordinates, source)

	slack := 2 * a.buffer
	switch {
	case rep.MaxDeviation <= a.buffer && rep.DecodedLength < rep.SourceLength-slack:
		rep.Result = PathTooShort
	case rep.MaxDeviation <= a.buffer:
		rep.Result = OK
	case rep.DecodedLength > rep.SourceLength+slack:
		rep.Result = PathTooLong
	default:
		rep.Result = AlternateShortestPath
	}
}

// deviation is the largest distance from a point of path to source. path is sampled at least
// every half buffer so that no segment can leave the buffer unnoticed.
func (a *Analyzer) deviation(path, source []geo.Coordinate) float64 {
	worst := 0.0
	for _, p := range samples(path, a.buffer/2) {
		worst = math.Max(worst, geo.ProjectOntoPath(source, p).Distance)
	}
	return worst
}

// covered reports whether every stretch of source has a stored road within the buffer.
func (a *Analyzer) covered(ctx context.Context, source []geo.Coordinate) (bool, error) {
	rdr := mapreader.NewWebToolMapReader(a.rows, a.log, mapreader.WithCache())
	for _, p := range samples(source, a.buffer) {
		lines, err := rdr.FindLinesCloseTo(ctx, p, a.buffer)
		if err != nil {
			return false, err
		}
		if len(lines) == 0 {
			a.log.Debug("source path leaves the map", zap.Float64("lat", p.Lat), zap.Float64("lon", p.Lon))
			return false, nil
		}
	}
	return true, nil
}

// lengthMismatch compares the length the reference asks for with the source path, using the
// DNP tolerance of cfg. The result names the map path relative to the reference.
func lengthMismatch(ref *openlr.LocationReference, sourceLength float64, cfg openlr.Config) Result {
	want := -ref.PositiveOffset - ref.NegativeOffset
	for _, p := range ref.Points[:len(ref.Points)-1] {
		want += p.DNP
	}
	tolerance := cfg.MaxDNPDeviation*want + cfg.ToleratedDNPDeviation
	switch {
	case sourceLength < want-tolerance:
		return PathTooShort
	case sourceLength > want+tolerance:
		return PathTooLong
	}
	return UnknownError
}

func samples(path []geo.Coordinate, step float64) []geo.Coordinate {
	step = math.Max(step, 1)
	total := geo.PathLength(path)
	out := append([]geo.Coordinate(nil), path...)
	for d := step; d < total; d += step {
		out = append(out, geo.PointAlong(path, d))
	}
	return out
}
