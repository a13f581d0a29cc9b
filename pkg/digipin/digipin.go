// Package digipin implements the DIGIPIN geocode, a reversible encoding of
// WGS-84 coordinates into a 10-symbol code. The covered area is a fixed
// rectangle over India (2.5..38.5 N, 63.5..99.5 E) subdivided 10 times into
// a 4x4 symbol grid, giving cells of roughly 3.8 m per side. Codes are
// rendered as 3+3+4 symbols with hyphen separators ("39J-438-TJC7").
//
// All functions are pure and safe for concurrent use.
package digipin

// Bounding rectangle of the encodable area, degrees, inclusive.
const (
	MinLatitude  = 2.5
	MaxLatitude  = 38.5
	MinLongitude = 63.5
	MaxLongitude = 99.5
)

const (
	span    = 36.0    // extent of both axes in degrees
	levels  = 10      // 4x4 subdivisions
	power   = 1 << 20 // per-axis index range: 2 bits per level
	symbols = 10      // symbols in a code, separators excluded
)

// Separator is the decorative grouping character. It may appear anywhere in
// decode input and is emitted after symbols 3 and 6 when encoding.
const Separator = '-'

// grid holds the symbol alphabet. Row 0 is the northernmost band, column 0
// the westernmost.
var grid = [4][4]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

const invalidDigit = 0xFF

// lookup maps an ASCII byte to row<<2|col, or invalidDigit. Lowercase forms
// of the eight letter symbols are accepted as aliases.
var lookup [128]uint8

func init() {
	for i := range lookup {
		lookup[i] = invalidDigit
	}
	for row := range grid {
		for col, ch := range grid[row] {
			v := uint8(row<<2 | col)
			lookup[ch] = v
			if ch >= 'A' && ch <= 'Z' {
				lookup[ch+'a'-'A'] = v
			}
		}
	}
}

// Coordinates is a WGS-84 point in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bounds is the rectangular extent of one cell in degrees.
type Bounds struct {
	MinLatitude  float64 `json:"min_latitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// Encode returns the 12-character code for the cell containing the given
// point. Latitude is validated before longitude; coordinates on the
// rectangle's boundary are valid and land in the outermost cell.
func Encode(lat, lon float64) (string, error) {
	if lat < MinLatitude || lat > MaxLatitude {
		return "", &LatitudeOutOfRangeError{Latitude: lat}
	}
	if lon < MinLongitude || lon > MaxLongitude {
		return "", &LongitudeOutOfRangeError{Longitude: lon}
	}
	// Latitude counts from the north edge so row 0 is the northern band.
	idxLat := scale(MaxLatitude - lat)
	idxLon := scale(lon - MinLongitude)
	return formatCode(idxLat, idxLon), nil
}

// scale maps a degree offset in [0, span] onto a cell index in [0, power).
// An offset of exactly span would index one past the last cell; it is
// clamped so the far edge belongs to the outermost cell.
func scale(delta float64) uint32 {
	idx := uint32(delta / span * power)
	if idx >= power {
		idx = power - 1
	}
	return idx
}

func formatCode(idxLat, idxLon uint32) string {
	var b [12]byte
	n := 0
	for level := 0; level < levels; level++ {
		shift := uint(2 * (levels - 1 - level))
		row := (idxLat >> shift) & 3
		col := (idxLon >> shift) & 3
		b[n] = grid[row][col]
		n++
		if level == 2 || level == 5 {
			b[n] = Separator
			n++
		}
	}
	return string(b[:])
}

// Normalize re-emits any decodable input in canonical form: uppercase with
// separators after the third and sixth symbols.
func Normalize(code string) (string, error) {
	idxLat, idxLon, err := parseIndexes(code)
	if err != nil {
		return "", err
	}
	return formatCode(idxLat, idxLon), nil
}
