package digipin

import (
	"errors"
	"math"
	"testing"
)

// worst-case round-trip error per axis: half a cell
const halfCell = span / power / 2

func almostEq(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got=%.10f want=%.10f (eps=%g)", got, want, eps)
	}
}

func TestEncode_KnownVector(t *testing.T) {
	code, err := Encode(28.6139, 77.2090)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if code != "39J-438-TJC7" {
		t.Fatalf("code=%q want 39J-438-TJC7", code)
	}
}

func TestEncode_CornersAreDeterministic(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     string
	}{
		{MaxLatitude, MinLongitude, "FFF-FFF-FFFF"},
		{MaxLatitude, MaxLongitude, "888-888-8888"},
		{MinLatitude, MinLongitude, "LLL-LLL-LLLL"},
		{MinLatitude, MaxLongitude, "TTT-TTT-TTTT"},
	}
	for _, c := range cases {
		code, err := Encode(c.lat, c.lon)
		if err != nil {
			t.Fatalf("Encode(%v,%v): %v", c.lat, c.lon, err)
		}
		if code != c.want {
			t.Fatalf("Encode(%v,%v)=%q want %q", c.lat, c.lon, code, c.want)
		}
	}
}

func TestEncode_LatitudeOutOfRange(t *testing.T) {
	_, err := Encode(1.0, 77.0)
	var latErr *LatitudeOutOfRangeError
	if !errors.As(err, &latErr) {
		t.Fatalf("err=%v want LatitudeOutOfRangeError", err)
	}
	if latErr.Latitude != 1.0 {
		t.Fatalf("Latitude=%v want 1", latErr.Latitude)
	}
	if latErr.Error() != "latitude 1 is out of range (2.5 to 38.5)" {
		t.Fatalf("message=%q", latErr.Error())
	}
}

func TestEncode_LongitudeOutOfRange(t *testing.T) {
	_, err := Encode(28.0, 120.0)
	var lonErr *LongitudeOutOfRangeError
	if !errors.As(err, &lonErr) {
		t.Fatalf("err=%v want LongitudeOutOfRangeError", err)
	}
	if lonErr.Longitude != 120.0 {
		t.Fatalf("Longitude=%v want 120", lonErr.Longitude)
	}
	if lonErr.Error() != "longitude 120 is out of range (63.5 to 99.5)" {
		t.Fatalf("message=%q", lonErr.Error())
	}
}

func TestEncode_LatitudeCheckedFirst(t *testing.T) {
	// both out of range: latitude's error wins
	_, err := Encode(-10.0, 200.0)
	var latErr *LatitudeOutOfRangeError
	if !errors.As(err, &latErr) {
		t.Fatalf("err=%v want LatitudeOutOfRangeError", err)
	}
}

func TestRoundTrip_ErrorBoundedByHalfCell(t *testing.T) {
	// sweep the rectangle with steps that avoid cell-edge alignment
	for lat := MinLatitude; lat <= MaxLatitude; lat += 3.73 {
		for lon := MinLongitude; lon <= MaxLongitude; lon += 3.91 {
			code, err := Encode(lat, lon)
			if err != nil {
				t.Fatalf("Encode(%v,%v): %v", lat, lon, err)
			}
			c, err := Decode(code)
			if err != nil {
				t.Fatalf("Decode(%q): %v", code, err)
			}
			if math.Abs(c.Latitude-lat) > halfCell+1e-12 {
				t.Fatalf("lat round-trip error %.10g exceeds %.10g at (%v,%v)",
					math.Abs(c.Latitude-lat), halfCell, lat, lon)
			}
			if math.Abs(c.Longitude-lon) > halfCell+1e-12 {
				t.Fatalf("lon round-trip error %.10g exceeds %.10g at (%v,%v)",
					math.Abs(c.Longitude-lon), halfCell, lat, lon)
			}
		}
	}
}

func TestRoundTrip_KnownVectorCenter(t *testing.T) {
	c, err := Decode("39J-438-TJC7")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	almostEq(t, c.Latitude, 28.6139, halfCell+1e-12)
	almostEq(t, c.Longitude, 77.2090, halfCell+1e-12)

	// re-encoding the center lands in the same cell
	again, err := Encode(c.Latitude, c.Longitude)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if again != "39J-438-TJC7" {
		t.Fatalf("re-encode=%q want 39J-438-TJC7", again)
	}
}

func TestNormalize_CanonicalForm(t *testing.T) {
	for _, in := range []string{
		"39j438tjc7",
		"39J438TJC7",
		"3-9-J-4-3-8-T-J-C-7",
		"39J-438-TJC7",
	} {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != "39J-438-TJC7" {
			t.Fatalf("Normalize(%q)=%q want 39J-438-TJC7", in, got)
		}
	}
}

func TestNormalize_RejectsInvalid(t *testing.T) {
	if _, err := Normalize("39J-438"); err == nil {
		t.Fatal("expected error for short input")
	}
	if _, err := Normalize("39Z-438-TJC7"); err == nil {
		t.Fatal("expected error for invalid character")
	}
}
