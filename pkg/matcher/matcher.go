// Package matcher decodes base64 OpenLR references into paths of stored roads.
package matcher

import (
	"context"
	"errors"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/expansion"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/mapreader"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"github.com/lintang-b-s/olrwebtool/pkg/storage"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MatchedLine is one directed line of a decoded path, expressed in terms of the stored road.
// LegacyID is the signed id, negative for reverse legs, and zero when the road has none.
type MatchedLine struct {
	LineID    string  `json:"line_id"`
	LegacyID  int64   `json:"legacy_id,omitempty"`
	RoadID    int64   `json:"road_id"`
	Direction string  `json:"direction"`
	Meta      string  `json:"meta"`
	Length    float64 `json:"length"`
}

type MatchedPath struct {
	Code           string           `json:"code"`
	Type           string           `json:"type"`
	Profile        string           `json:"profile"`
	Lines          []MatchedLine    `json:"lines"`
	Coordinates    []geo.Coordinate `json:"coordinates"`
	Polyline       string           `json:"polyline"`
	Length         float64          `json:"length"`
	PositiveOffset float64          `json:"positive_offset"`
	NegativeOffset float64          `json:"negative_offset"`
}

// Matcher owns the decoder profiles. Every call builds its own map reader so that no state is
// shared between decodes.
type Matcher struct {
	rows    storage.RowFetcher
	configs []openlr.Config
	log     *zap.Logger
}

// New tries configs in order until one decodes. With no configs it uses strict then relaxed.
func New(rows storage.RowFetcher, log *zap.Logger, configs ...openlr.Config) *Matcher {
	if len(configs) == 0 {
		configs = []openlr.Config{openlr.StrictConfig(), openlr.RelaxedConfig()}
	}
	return &Matcher{rows: rows, configs: configs, log: log}
}

// NewFromViper uses DECODER_PROFILE with its overrides, followed by the relaxed profile when
// DECODER_FALLBACK is set.
func NewFromViper(rows storage.RowFetcher, log *zap.Logger) (*Matcher, error) {
	primary, err := openlr.ConfigFromViper()
	if err != nil {
		return nil, err
	}
	configs := []openlr.Config{primary}
	if viper.GetBool("DECODER_FALLBACK") && primary.Name != "relaxed" {
		configs = append(configs, openlr.RelaxedConfig())
	}
	return New(rows, log, configs...), nil
}

func (m *Matcher) Profiles() []string {
	names := make([]string, len(m.configs))
	for i, c := range m.configs {
		names[i] = c.Name
	}
	return names
}

// Match decodes code with the configured profiles.
func (m *Matcher) Match(ctx context.Context, code string) (*MatchedPath, error) {
	return m.match(ctx, code, m.configs)
}

// MatchWith decodes code with a single profile and no fallback.
func (m *Matcher) MatchWith(ctx context.Context, code string, cfg openlr.Config) (*MatchedPath, error) {
	return m.match(ctx, code, []openlr.Config{cfg})
}

func (m *Matcher) match(ctx context.Context, code string, configs []openlr.Config) (*MatchedPath, error) {
	ref, err := openlr.DecodeBinary(code)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid location reference %q", code)
	}

	rdr := mapreader.NewWebToolMapReader(m.rows, m.log, mapreader.WithCache())

	var lastErr error
	for _, cfg := range configs {
		loc, err := openlr.NewDereferencer(cfg, m.log).Decode(ctx, rdr, ref)
		if err == nil {
			return newMatchedPath(code, cfg.Name, loc), nil
		}
		if !errors.Is(err, openlr.ErrNoCandidatesFound) && !errors.Is(err, openlr.ErrNoMatchFound) {
			m.log.Error("decode failed", zap.String("code", code), zap.String("profile", cfg.Name), zap.Error(err))
			return nil, util.WrapErrorf(err, util.ErrorCode(err), "decoding %q", code)
		}
		m.log.Debug("profile did not match", zap.String("code", code), zap.String("profile", cfg.Name), zap.Error(err))
		lastErr = err
	}
	return nil, util.WrapErrorf(lastErr, util.ErrNotFound, "no path matches %q", code)
}

func newMatchedPath(code, profile string, loc openlr.Location) *MatchedPath {
	coords := loc.Coordinates()
	path := &MatchedPath{
		Code:        code,
		Type:        loc.Type().String(),
		Profile:     profile,
		Coordinates: coords,
		Polyline:    geo.PolylineFromCoords(coords),
	}

	switch l := loc.(type) {
	case *openlr.LineLocation:
		path.Lines = matchedLines(l.Lines)
		path.PositiveOffset = l.PositiveOffset
		path.NegativeOffset = l.NegativeOffset
		path.Length = max(l.Length()-l.PositiveOffset-l.NegativeOffset, 0)
	case *openlr.PointAlongLine:
		path.Lines = matchedLines([]*datastructure.DirectedLine{l.Line})
		path.PositiveOffset = l.PositiveOffset
		path.NegativeOffset = max(l.Line.Length-l.PositiveOffset, 0)
	}
	return path
}

func matchedLines(lines []*datastructure.DirectedLine) []MatchedLine {
	out := make([]MatchedLine, len(lines))
	for i, l := range lines {
		road, dir := expansion.ToStored(l.ID)
		legacy, _ := l.ID.Flatten()
		out[i] = MatchedLine{
			LineID:    l.ID.String(),
			LegacyID:  legacy,
			RoadID:    road,
			Direction: dir.String(),
			Meta:      l.Meta,
			Length:    l.Length,
		}
	}
	return out
}
