package openlr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

var ErrInvalidReference = errors.New("invalid location reference")

type LocationType uint8

const (
	LineLocationType LocationType = iota + 1
	GeoCoordinateType
	PointAlongLineType
)

func (t LocationType) String() string {
	switch t {
	case LineLocationType:
		return "line"
	case GeoCoordinateType:
		return "geo_coordinate"
	case PointAlongLineType:
		return "point_along_line"
	}
	return "unknown"
}

// Orientation of a point along line relative to the direction of the line.
type Orientation uint8

const (
	NoOrientation Orientation = iota
	WithLineDirection
	AgainstLineDirection
	BothDirections
)

type SideOfRoad uint8

const (
	OnRoadOrUnknown SideOfRoad = iota
	RightSide
	LeftSide
	BothSides
)

// LRP is a location reference point. DNP is the distance in meters to the next point along
// the location, LFRCNP the lowest FRC used on the way there.
type LRP struct {
	Coord   geo.Coordinate    `json:"coord"`
	FRC     datastructure.FRC `json:"frc"`
	FOW     datastructure.FOW `json:"fow"`
	Bearing float64           `json:"bearing"`
	LFRCNP  datastructure.FRC `json:"lfrcnp"`
	DNP     float64           `json:"dnp"`
}

type LocationReference struct {
	Type   LocationType `json:"type"`
	Points []LRP        `json:"points,omitempty"`
	// PositiveOffset and NegativeOffset are in meters.
	PositiveOffset float64        `json:"positive_offset"`
	NegativeOffset float64        `json:"negative_offset"`
	Orientation    Orientation    `json:"orientation,omitempty"`
	SideOfRoad     SideOfRoad     `json:"side_of_road,omitempty"`
	Coordinate     geo.Coordinate `json:"coordinate,omitempty"`
}

const (
	binaryVersion = 3

	statusAttributeFlag = 1 << 3
	statusPointFlag     = 1 << 5

	absCoordSize     = 6
	relCoordSize     = 4
	firstLRPSize     = absCoordSize + 3
	intermediateSize = relCoordSize + 3
	lastLRPSize      = relCoordSize + 2

	geoCoordinateSize  = 1 + absCoordSize
	lineLocationMin    = 1 + firstLRPSize + lastLRPSize
	pointAlongLineSize = 1 + firstLRPSize + lastLRPSize

	bearingSector = 11.25
	dnpUnit       = 58.6
	relDivisor    = 100000.0
)

// DecodeBinary parses a base64 OpenLR binary (version 3) reference.
func DecodeBinary(code string) (*LocationReference, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidReference)
	}

	status := b[0]
	if v := status & 0x07; v != binaryVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidReference, v)
	}
	point := status&statusPointFlag != 0
	attrs := status&statusAttributeFlag != 0

	switch {
	case !point && attrs:
		return decodeLineLocation(b)
	case point && !attrs && len(b) == geoCoordinateSize:
		return &LocationReference{Type: GeoCoordinateType, Coordinate: decodeAbsolute(b[1:])}, nil
	case point && attrs && (len(b) == pointAlongLineSize || len(b) == pointAlongLineSize+1):
		return decodePointAlongLine(b)
	}
	return nil, fmt.Errorf("%w: unsupported location (status %#02x, %d bytes)", ErrInvalidReference, status, len(b))
}

func decodeLineLocation(b []byte) (*LocationReference, error) {
	if len(b) < lineLocationMin {
		return nil, fmt.Errorf("%w: %d bytes is too short for a line location", ErrInvalidReference, len(b))
	}
	intermediates := (len(b) - lineLocationMin) / intermediateSize
	offsetBytes := (len(b) - lineLocationMin) % intermediateSize
	if offsetBytes > 2 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidReference, len(b))
	}

	ref := &LocationReference{Type: LineLocationType}
	first := decodeAbsolute(b[1:])
	lrp := decodeAttributes(first, b[1+absCoordSize:])
	ref.Points = append(ref.Points, lrp)

	pos := 1 + firstLRPSize
	prev := first
	for i := 0; i < intermediates; i++ {
		c := decodeRelative(prev, b[pos:])
		ref.Points = append(ref.Points, decodeAttributes(c, b[pos+relCoordSize:]))
		prev = c
		pos += intermediateSize
	}

	last := decodeRelative(prev, b[pos:])
	attr1, attr4 := b[pos+relCoordSize], b[pos+relCoordSize+1]
	ref.Points = append(ref.Points, LRP{
		Coord:   last,
		FRC:     datastructure.FRC((attr1 >> 3) & 0x07),
		FOW:     datastructure.FOW(attr1 & 0x07),
		Bearing: decodeBearing(attr4),
		LFRCNP:  datastructure.FRC7,
	})
	pos += lastLRPSize

	pFlag := attr4&(1<<6) != 0
	nFlag := attr4&(1<<5) != 0
	want := 0
	if pFlag {
		want++
	}
	if nFlag {
		want++
	}
	if want != offsetBytes {
		return nil, fmt.Errorf("%w: offset flags do not match length", ErrInvalidReference)
	}
	if pFlag {
		ref.PositiveOffset = decodeOffset(b[pos], ref.Points[0].DNP)
		pos++
	}
	if nFlag {
		ref.NegativeOffset = decodeOffset(b[pos], ref.Points[len(ref.Points)-2].DNP)
	}
	return ref, nil
}

func decodePointAlongLine(b []byte) (*LocationReference, error) {
	ref := &LocationReference{Type: PointAlongLineType}
	first := decodeAbsolute(b[1:])
	lrp := decodeAttributes(first, b[1+absCoordSize:])
	ref.Orientation = Orientation(b[1+absCoordSize] >> 6)
	ref.Points = append(ref.Points, lrp)

	pos := 1 + firstLRPSize
	last := decodeRelative(first, b[pos:])
	attr1, attr4 := b[pos+relCoordSize], b[pos+relCoordSize+1]
	ref.SideOfRoad = SideOfRoad(attr1 >> 6)
	ref.Points = append(ref.Points, LRP{
		Coord:   last,
		FRC:     datastructure.FRC((attr1 >> 3) & 0x07),
		FOW:     datastructure.FOW(attr1 & 0x07),
		Bearing: decodeBearing(attr4),
		LFRCNP:  datastructure.FRC7,
	})
	pos += lastLRPSize

	pFlag := attr4&(1<<6) != 0
	if pFlag != (len(b) == pointAlongLineSize+1) {
		return nil, fmt.Errorf("%w: offset flag does not match length", ErrInvalidReference)
	}
	if pFlag {
		ref.PositiveOffset = decodeOffset(b[pos], lrp.DNP)
	}
	return ref, nil
}

func decodeAttributes(c geo.Coordinate, b []byte) LRP {
	return LRP{
		Coord:   c,
		FRC:     datastructure.FRC((b[0] >> 3) & 0x07),
		FOW:     datastructure.FOW(b[0] & 0x07),
		LFRCNP:  datastructure.FRC(b[1] >> 5),
		Bearing: decodeBearing(b[1]),
		DNP:     (float64(b[2]) + 0.5) * dnpUnit,
	}
}

func decodeBearing(b byte) float64 {
	return float64(b&0x1f)*bearingSector + bearingSector/2
}

func decodeOffset(b byte, dnp float64) float64 {
	return (float64(b) + 0.5) / 256 * dnp
}

func int24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

func int16be(b []byte) int16 {
	return int16(uint16(b[0])<<8 | uint16(b[1]))
}

func absoluteToDegrees(v int32) float64 {
	sgn := 0.0
	switch {
	case v > 0:
		sgn = 1
	case v < 0:
		sgn = -1
	}
	return (float64(v) - sgn*0.5) * 360 / (1 << 24)
}

func decodeAbsolute(b []byte) geo.Coordinate {
	lon := absoluteToDegrees(int24(b[0:3]))
	lat := absoluteToDegrees(int24(b[3:6]))
	return geo.NewCoordinate(lat, lon)
}

func decodeRelative(prev geo.Coordinate, b []byte) geo.Coordinate {
	lon := prev.Lon + float64(int16be(b[0:2]))/relDivisor
	lat := prev.Lat + float64(int16be(b[2:4]))/relDivisor
	return geo.NewCoordinate(lat, lon)
}

// EncodeBinary is the inverse of DecodeBinary. Values are quantized the way the binary format
// requires, so decoding the result gives back approximately ref.
func EncodeBinary(ref *LocationReference) (string, error) {
	var b []byte
	switch ref.Type {
	case LineLocationType:
		if len(ref.Points) < 2 {
			return "", fmt.Errorf("%w: a line location needs at least 2 points", ErrInvalidReference)
		}
		b = encodeLineLocation(ref)
	case PointAlongLineType:
		if len(ref.Points) != 2 {
			return "", fmt.Errorf("%w: a point along line needs exactly 2 points", ErrInvalidReference)
		}
		b = encodePointAlongLine(ref)
	case GeoCoordinateType:
		b = append([]byte{statusPointFlag | binaryVersion}, encodeAbsolute(ref.Coordinate)...)
	default:
		return "", fmt.Errorf("%w: unknown location type %d", ErrInvalidReference, ref.Type)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func encodeLineLocation(ref *LocationReference) []byte {
	pts := ref.Points
	b := []byte{statusAttributeFlag | binaryVersion}
	b = append(b, encodeAbsolute(pts[0].Coord)...)
	b = append(b, encodeAttributes(pts[0], 0)...)

	prev := quantizedAbsolute(pts[0].Coord)
	for _, p := range pts[1 : len(pts)-1] {
		rel, c := encodeRelative(prev, p.Coord)
		b = append(b, rel...)
		b = append(b, encodeAttributes(p, 0)...)
		prev = c
	}

	last := pts[len(pts)-1]
	rel, _ := encodeRelative(prev, last.Coord)
	b = append(b, rel...)

	var pOff, nOff []byte
	attr4 := encodeBearing(last.Bearing)
	if ref.PositiveOffset > 0 {
		attr4 |= 1 << 6
		pOff = []byte{encodeOffset(ref.PositiveOffset, quantizedDNP(pts[0].DNP))}
	}
	if ref.NegativeOffset > 0 {
		attr4 |= 1 << 5
		nOff = []byte{encodeOffset(ref.NegativeOffset, quantizedDNP(pts[len(pts)-2].DNP))}
	}
	b = append(b, byte(last.FRC&0x07)<<3|byte(last.FOW&0x07), attr4)
	b = append(b, pOff...)
	return append(b, nOff...)
}

func encodePointAlongLine(ref *LocationReference) []byte {
	first, last := ref.Points[0], ref.Points[1]
	b := []byte{statusPointFlag | statusAttributeFlag | binaryVersion}
	b = append(b, encodeAbsolute(first.Coord)...)
	b = append(b, encodeAttributes(first, byte(ref.Orientation&0x03)<<6)...)

	rel, _ := encodeRelative(quantizedAbsolute(first.Coord), last.Coord)
	b = append(b, rel...)

	attr4 := encodeBearing(last.Bearing)
	var pOff []byte
	if ref.PositiveOffset > 0 {
		attr4 |= 1 << 6
		pOff = []byte{encodeOffset(ref.PositiveOffset, quantizedDNP(first.DNP))}
	}
	b = append(b, byte(ref.SideOfRoad&0x03)<<6|byte(last.FRC&0x07)<<3|byte(last.FOW&0x07), attr4)
	return append(b, pOff...)
}

func encodeAttributes(p LRP, high byte) []byte {
	dnp := math.Floor(p.DNP / dnpUnit)
	return []byte{
		high | byte(p.FRC&0x07)<<3 | byte(p.FOW&0x07),
		byte(p.LFRCNP&0x07)<<5 | encodeBearing(p.Bearing),
		byte(min(dnp, 255)),
	}
}

func encodeBearing(bearing float64) byte {
	bearing = math.Mod(math.Mod(bearing, 360)+360, 360)
	return byte(int(bearing/bearingSector) & 0x1f)
}

// quantizedDNP is the DNP a decoder will read back, which offsets are relative to.
func quantizedDNP(dnp float64) float64 {
	return (min(math.Floor(dnp/dnpUnit), 255) + 0.5) * dnpUnit
}

func encodeOffset(offset, dnp float64) byte {
	v := math.Floor(offset * 256 / dnp)
	return byte(max(0, min(v, 255)))
}

func degreesToAbsolute(deg float64) int32 {
	sgn := 0.0
	switch {
	case deg > 0:
		sgn = 1
	case deg < 0:
		sgn = -1
	}
	return int32(sgn*0.5 + deg*(1<<24)/360)
}

func put24(v int32) []byte {
	u := uint32(v) & 0xffffff
	return []byte{byte(u >> 16), byte(u >> 8), byte(u)}
}

func encodeAbsolute(c geo.Coordinate) []byte {
	return append(put24(degreesToAbsolute(c.Lon)), put24(degreesToAbsolute(c.Lat))...)
}

func quantizedAbsolute(c geo.Coordinate) geo.Coordinate {
	return geo.NewCoordinate(absoluteToDegrees(degreesToAbsolute(c.Lat)), absoluteToDegrees(degreesToAbsolute(c.Lon)))
}

// encodeRelative returns the relative encoding of c from prev and the coordinate a decoder will
// reconstruct from it.
func encodeRelative(prev, c geo.Coordinate) ([]byte, geo.Coordinate) {
	dLon := int16(math.Round((c.Lon - prev.Lon) * relDivisor))
	dLat := int16(math.Round((c.Lat - prev.Lat) * relDivisor))
	b := []byte{byte(uint16(dLon) >> 8), byte(uint16(dLon)), byte(uint16(dLat) >> 8), byte(uint16(dLat))}
	return b, geo.NewCoordinate(prev.Lat+float64(dLat)/relDivisor, prev.Lon+float64(dLon)/relDivisor)
}
