package analysis

import "fmt"

// Result classifies how a reference decodes against a map, measured against the geometry the
// reference was encoded from.
type Result uint8

const (
	OK Result = iota
	MissingPath
	AlternateShortestPath
	FRCMismatch
	FOWMismatch
	BearingMismatch
	PathTooLong
	PathTooShort
	UnsupportedLocationType
	UnknownError
)

var resultNames = [...]string{
	OK:                      "OK",
	MissingPath:             "MISSING_PATH",
	AlternateShortestPath:   "ALTERNATE_SHORTEST_PATH",
	FRCMismatch:             "FRC_MISMATCH",
	FOWMismatch:             "FOW_MISMATCH",
	BearingMismatch:         "BEARING_MISMATCH",
	PathTooLong:             "PATH_TOO_LONG",
	PathTooShort:            "PATH_TOO_SHORT",
	UnsupportedLocationType: "UNSUPPORTED_LOCATION_TYPE",
	UnknownError:            "UNKNOWN_ERROR",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	for i, name := range resultNames {
		if name == string(b) {
			*r = Result(i)
			return nil
		}
	}
	return fmt.Errorf("unknown analysis result %q", b)
}
