package digipin

import "fmt"

// LatitudeOutOfRangeError reports a latitude outside the covered rectangle.
type LatitudeOutOfRangeError struct {
	Latitude float64
}

func (e *LatitudeOutOfRangeError) Error() string {
	return fmt.Sprintf("latitude %v is out of range (%v to %v)", e.Latitude, MinLatitude, MaxLatitude)
}

// LongitudeOutOfRangeError reports a longitude outside the covered rectangle.
type LongitudeOutOfRangeError struct {
	Longitude float64
}

func (e *LongitudeOutOfRangeError) Error() string {
	return fmt.Sprintf("longitude %v is out of range (%v to %v)", e.Longitude, MinLongitude, MaxLongitude)
}

// InvalidLengthError reports decode input with other than 10 symbols after
// separator stripping. Count is the number of symbols found when too few,
// or 11 as a sentinel when too many.
type InvalidLengthError struct {
	Count int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid DIGIPIN length: %d (expected %d)", e.Count, symbols)
}

// InvalidCharacterError reports the first decode input byte that is neither
// a separator nor a grid symbol.
type InvalidCharacterError struct {
	Char byte
}

func (e *InvalidCharacterError) Error() string {
	return fmt.Sprintf("invalid character %q in DIGIPIN", e.Char)
}
