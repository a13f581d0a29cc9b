// Package convert maps DIGIPIN cells into other geocoding systems.
package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
	h3 "github.com/uber/h3-go/v4"

	"github.com/arjunmehra/digipin-gateway/internal/model"
	"github.com/arjunmehra/digipin-gateway/pkg/digipin"
)

// Mean Earth radius, used to turn s2 angles into meters.
const earthRadiusMeters = 6371008.8

type Converter struct {
	h3Res  int
	ghPrec int
}

// New returns a Converter with the default H3 resolution and geohash
// precision used when a request does not override them.
func New(h3Res, ghPrec int) *Converter {
	return &Converter{h3Res: h3Res, ghPrec: ghPrec}
}

// Convert resolves a pin to its cell center and re-expresses that point
// as a geohash and an H3 cell. Pass h3Res < 0 to use the default.
func (c *Converter) Convert(pin string, h3Res int) (model.ConvertResponse, error) {
	res := h3Res
	if res < 0 {
		res = c.h3Res
	}
	if err := validateRes(res); err != nil {
		return model.ConvertResponse{}, err
	}

	norm, err := digipin.Normalize(pin)
	if err != nil {
		return model.ConvertResponse{}, err
	}
	ctr, err := digipin.Decode(norm)
	if err != nil {
		return model.ConvertResponse{}, err
	}

	cell, err := h3.LatLngToCell(h3.LatLng{Lat: ctr.Latitude, Lng: ctr.Longitude}, res)
	if err != nil {
		return model.ConvertResponse{}, fmt.Errorf("h3 cell: %w", err)
	}

	return model.ConvertResponse{
		Pin:     norm,
		Center:  ctr,
		Geohash: geohash.EncodeWithPrecision(ctr.Latitude, ctr.Longitude, c.ghPrec),
		H3:      cell.String(),
		H3Res:   res,
	}, nil
}

// Distance reports the great-circle distance between the centers of two
// pins in meters.
func (c *Converter) Distance(from, to string) (model.DistanceResponse, error) {
	fn, err := digipin.Normalize(from)
	if err != nil {
		return model.DistanceResponse{}, err
	}
	tn, err := digipin.Normalize(to)
	if err != nil {
		return model.DistanceResponse{}, err
	}

	a, err := digipin.Decode(fn)
	if err != nil {
		return model.DistanceResponse{}, err
	}
	b, err := digipin.Decode(tn)
	if err != nil {
		return model.DistanceResponse{}, err
	}

	la := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	lb := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	meters := float64(la.Distance(lb)) * earthRadiusMeters

	return model.DistanceResponse{From: fn, To: tn, Meters: meters}, nil
}

// CellFeature renders the cell rectangle as a GeoJSON Feature. The ring
// runs counterclockwise and repeats the first vertex to close.
func (c *Converter) CellFeature(pin string) ([]byte, error) {
	norm, err := digipin.Normalize(pin)
	if err != nil {
		return nil, err
	}
	b, err := digipin.DecodeBounds(norm)
	if err != nil {
		return nil, err
	}

	ring := [][2]float64{
		{b.MinLongitude, b.MinLatitude},
		{b.MaxLongitude, b.MinLatitude},
		{b.MaxLongitude, b.MaxLatitude},
		{b.MinLongitude, b.MaxLatitude},
	}
	coords := make([]string, 0, len(ring)+1)
	for _, xy := range ring {
		coords = append(coords, fmt.Sprintf("[%.8f,%.8f]", xy[0], xy[1]))
	}
	coords = append(coords, coords[0])
	geom := `{"type":"Polygon","coordinates":[[` + strings.Join(coords, ",") + `]]}`

	f := struct {
		Type       string            `json:"type"`
		Properties map[string]string `json:"properties"`
		Geometry   json.RawMessage   `json:"geometry"`
	}{
		Type:       "Feature",
		Properties: map[string]string{"pin": norm},
		Geometry:   json.RawMessage(geom),
	}
	return json.Marshal(f)
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
