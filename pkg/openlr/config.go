package openlr

import (
	"fmt"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
)

// FOWStandIn scores how well a candidate FOW (column) replaces the FOW of an LRP (row).
type FOWStandIn [8][8]float64

// Config tunes the decoder. It is a value: build one per session and pass it around.
type Config struct {
	Name string
	// SearchRadius in meters around every LRP.
	SearchRadius float64
	// MaxBearingDeviation in degrees.
	MaxBearingDeviation float64
	// BearingDistance is how far along a line its bearing is measured, in meters.
	BearingDistance float64
	GeoWeight       float64
	FRCWeight       float64
	FOWWeight       float64
	BearingWeight   float64
	MinScore        float64
	// MaxCandidates per LRP, 0 keeps all.
	MaxCandidates int
	// MaxDNPDeviation is the tolerated relative difference between a route and the DNP.
	MaxDNPDeviation float64
	// ToleratedDNPDeviation in meters always passes.
	ToleratedDNPDeviation float64
	// ToleratedLFRC maps the LFRCNP of an LRP to the least important FRC a route may use.
	ToleratedLFRC [8]datastructure.FRC
	FOWStandIn    FOWStandIn
}

var defaultFOWStandIn = FOWStandIn{
	{0.50, 0.50, 0.50, 0.50, 0.50, 0.50, 0.50, 0.50},
	{0.50, 1.00, 0.75, 0.00, 0.00, 0.00, 0.00, 0.00},
	{0.50, 0.75, 1.00, 0.75, 0.50, 0.00, 0.00, 0.00},
	{0.50, 0.00, 0.75, 1.00, 0.50, 0.50, 0.00, 0.00},
	{0.50, 0.00, 0.50, 0.50, 1.00, 0.50, 0.00, 0.00},
	{0.50, 0.00, 0.00, 0.50, 0.50, 1.00, 0.00, 0.00},
	{0.50, 0.00, 0.00, 0.00, 0.00, 0.00, 1.00, 0.00},
	{0.50, 0.00, 0.00, 0.00, 0.00, 0.00, 0.00, 1.00},
}

var permissiveFOWStandIn = func() FOWStandIn {
	var m FOWStandIn
	for i := range m {
		for j := range m[i] {
			m[i][j] = 1
		}
	}
	return m
}()

var (
	strictLFRC  = [8]datastructure.FRC{1, 2, 3, 4, 5, 6, 7, 7}
	relaxedLFRC = [8]datastructure.FRC{1, 3, 3, 5, 5, 7, 7, 7}
	anyLFRC     = [8]datastructure.FRC{7, 7, 7, 7, 7, 7, 7, 7}
)

func baseConfig() Config {
	return Config{
		SearchRadius:          100,
		MaxBearingDeviation:   45,
		BearingDistance:       20,
		GeoWeight:             0.25,
		FRCWeight:             0.25,
		FOWWeight:             0.25,
		BearingWeight:         0.25,
		MinScore:              0.3,
		MaxCandidates:         10,
		MaxDNPDeviation:       0.3,
		ToleratedDNPDeviation: 30,
		ToleratedLFRC:         strictLFRC,
		FOWStandIn:            defaultFOWStandIn,
	}
}

// StrictConfig is tried first.
func StrictConfig() Config {
	c := baseConfig()
	c.Name = "strict"
	c.SearchRadius = 30
	c.MaxBearingDeviation = 30
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 0.66, 0.17, 0.17, 0
	return c
}

// RelaxedConfig is the fallback when a strict decode finds nothing.
func RelaxedConfig() Config {
	c := baseConfig()
	c.Name = "relaxed"
	c.SearchRadius = 50
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 0.66, 0.17, 0.17, 0
	c.ToleratedLFRC = relaxedLFRC
	return c
}

// AnyPathConfig accepts any connected path of plausible length, ignoring FRC, FOW and bearing.
// A failure with it usually means the map lacks segments or has one-way roads digitized the
// wrong way.
func AnyPathConfig() Config {
	c := baseConfig()
	c.Name = "anypath"
	c.SearchRadius = 20
	c.MinScore = 0
	c.MaxBearingDeviation = 180
	c.MaxDNPDeviation = 0.2
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 1, 0, 0, 0
	c.ToleratedLFRC = anyLFRC
	return c
}

func IgnoreFRCConfig() Config {
	c := baseConfig()
	c.Name = "ignore-frc"
	c.SearchRadius = 20
	c.MaxBearingDeviation = 30
	c.MaxDNPDeviation = 0.2
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 0.33, 0, 0.33, 0.33
	c.ToleratedLFRC = anyLFRC
	return c
}

func IgnoreBearingConfig() Config {
	c := baseConfig()
	c.Name = "ignore-bearing"
	c.SearchRadius = 20
	c.MaxBearingDeviation = 180
	c.MaxDNPDeviation = 0.2
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 0.33, 0.33, 0.33, 0
	return c
}

func IgnoreFOWConfig() Config {
	c := baseConfig()
	c.Name = "ignore-fow"
	c.SearchRadius = 20
	c.MaxBearingDeviation = 30
	c.MaxDNPDeviation = 0.2
	c.GeoWeight, c.FRCWeight, c.FOWWeight, c.BearingWeight = 0.33, 0.33, 0, 0.33
	c.FOWStandIn = permissiveFOWStandIn
	return c
}

var profiles = map[string]func() Config{
	"strict":         StrictConfig,
	"relaxed":        RelaxedConfig,
	"anypath":        AnyPathConfig,
	"ignore-frc":     IgnoreFRCConfig,
	"ignore-bearing": IgnoreBearingConfig,
	"ignore-fow":     IgnoreFOWConfig,
}

// ConfigByName returns a named profile.
func ConfigByName(name string) (Config, error) {
	f, ok := profiles[name]
	if !ok {
		return Config{}, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown decoder profile %q", name)
	}
	return f(), nil
}

// ConfigFromViper starts from DECODER_PROFILE and applies the DECODER_* overrides that are set.
func ConfigFromViper() (Config, error) {
	c, err := ConfigByName(viper.GetString("DECODER_PROFILE"))
	if err != nil {
		return Config{}, err
	}
	if viper.IsSet("DECODER_SEARCH_RADIUS") {
		c.SearchRadius = viper.GetFloat64("DECODER_SEARCH_RADIUS")
	}
	if viper.IsSet("DECODER_MAX_BEARING_DEVIATION") {
		c.MaxBearingDeviation = viper.GetFloat64("DECODER_MAX_BEARING_DEVIATION")
	}
	if viper.IsSet("DECODER_MIN_SCORE") {
		c.MinScore = viper.GetFloat64("DECODER_MIN_SCORE")
	}
	if viper.IsSet("DECODER_MAX_CANDIDATES") {
		c.MaxCandidates = viper.GetInt("DECODER_MAX_CANDIDATES")
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.SearchRadius <= 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "search radius must be positive, got %v", c.SearchRadius)
	}
	if c.MaxBearingDeviation < 0 || c.MaxBearingDeviation > 180 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "max bearing deviation out of range: %v", c.MaxBearingDeviation)
	}
	if c.MaxCandidates < 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "max candidates must not be negative")
	}
	for i, f := range c.ToleratedLFRC {
		if f > datastructure.FRC7 {
			return util.WrapErrorf(nil, util.ErrBadParamInput, "tolerated lfrc %d out of range: %d", i, f)
		}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s(radius=%.0fm, bearing=%.0f°)", c.Name, c.SearchRadius, c.MaxBearingDeviation)
}
