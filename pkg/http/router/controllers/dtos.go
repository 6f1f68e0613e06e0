package controllers

import (
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/expansion"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
)

type decodeRequest struct {
	Code    string `json:"code" validate:"required,base64"`
	Profile string `json:"profile" validate:"omitempty,oneof=strict relaxed anypath ignore-frc ignore-bearing ignore-fow"`
}

type analyzeRequest struct {
	Code string `json:"code" validate:"required,base64"`
	Path string `json:"path" validate:"required"`
}

type nearRequest struct {
	Lat    float64 `json:"lat" validate:"min=-90,max=90"`
	Lon    float64 `json:"lon" validate:"min=-180,max=180"`
	Radius float64 `json:"radius" validate:"gt=0,lte=5000"`
}

type nodeRequest struct {
	ID int64 `json:"id" validate:"gt=0"`
}

type lineResponse struct {
	ID          string           `json:"id"`
	LegacyID    int64            `json:"legacy_id,omitempty"`
	RoadID      int64            `json:"road_id"`
	Direction   string           `json:"direction"`
	StartNode   int64            `json:"start_node"`
	EndNode     int64            `json:"end_node"`
	Length      float64          `json:"length"`
	FRC         uint8            `json:"frc"`
	FOW         uint8            `json:"fow"`
	Meta        string           `json:"meta"`
	Polyline    string           `json:"polyline"`
	Coordinates []geo.Coordinate `json:"coordinates"`
}

func NewLineResponse(l *datastructure.DirectedLine) lineResponse {
	road, dir := expansion.ToStored(l.ID)
	// roads without a positive id have no signed form.
	legacy, _ := l.ID.Flatten()
	return lineResponse{
		ID:          l.ID.String(),
		LegacyID:    legacy,
		RoadID:      road,
		Direction:   dir.String(),
		StartNode:   l.StartNode,
		EndNode:     l.EndNode,
		Length:      l.Length,
		FRC:         uint8(l.FRC),
		FOW:         uint8(l.FOW),
		Meta:        l.Meta,
		Polyline:    geo.PolylineFromCoords(l.Geometry),
		Coordinates: l.Geometry,
	}
}

func NewLinesResponse(lines []*datastructure.DirectedLine) []lineResponse {
	resp := make([]lineResponse, len(lines))
	for i, l := range lines {
		resp[i] = NewLineResponse(l)
	}
	return resp
}

type nodeResponse struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewNodesResponse(nodes []datastructure.StoredNode) []nodeResponse {
	resp := make([]nodeResponse, len(nodes))
	for i, n := range nodes {
		resp[i] = nodeResponse{ID: n.ID, Lat: n.Coord.Lat, Lon: n.Coord.Lon}
	}
	return resp
}

type healthResponse struct {
	Status string `json:"status"`
	Roads  *int64 `json:"roads,omitempty"`
	Nodes  *int64 `json:"nodes,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
