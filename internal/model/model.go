// Package model defines the JSON response types served by the gateway.
package model

import "github.com/arjunmehra/digipin-gateway/pkg/digipin"

// PinResponse is the body for /v1/encode and /v1/decode. Pin is always in
// canonical grouped form; Center is the midpoint of the addressed cell.
type PinResponse struct {
	Pin    string              `json:"pin"`
	Center digipin.Coordinates `json:"center"`
}

type BoundsResponse struct {
	Pin    string         `json:"pin"`
	Bounds digipin.Bounds `json:"bounds"`
}

// ConvertResponse carries the same cell center expressed in the other
// geocode systems the gateway speaks.
type ConvertResponse struct {
	Pin     string              `json:"pin"`
	Center  digipin.Coordinates `json:"center"`
	Geohash string              `json:"geohash"`
	H3      string              `json:"h3"`
	H3Res   int                 `json:"h3_res"`
}

type DistanceResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Meters float64 `json:"meters"`
}

type RegionScore struct {
	Region string  `json:"region"`
	Score  float64 `json:"score"`
}

type RegionStats struct {
	Regions []RegionScore `json:"regions"`
	Tracked int           `json:"tracked"`
}

type BatchAccepted struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Items     int    `json:"items"`
	Duplicate bool   `json:"duplicate"`
}
