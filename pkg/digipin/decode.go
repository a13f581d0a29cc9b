package digipin

// parseIndexes strips separators and rebuilds the two 20-bit cell indexes.
// A character outside the alphabet is reported before any length error, and
// anything beyond 10 symbols reports the too-many sentinel regardless of how
// much input remains.
func parseIndexes(code string) (idxLat, idxLon uint32, err error) {
	found := 0
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch == Separator {
			continue
		}
		if found == symbols {
			return 0, 0, &InvalidLengthError{Count: symbols + 1}
		}
		v := uint8(invalidDigit)
		if ch < 128 {
			v = lookup[ch]
		}
		if v == invalidDigit {
			return 0, 0, &InvalidCharacterError{Char: ch}
		}
		idxLat = idxLat<<2 | uint32(v>>2)
		idxLon = idxLon<<2 | uint32(v&3)
		found++
	}
	if found < symbols {
		return 0, 0, &InvalidLengthError{Count: found}
	}
	return idxLat, idxLon, nil
}

// Decode returns the center of the cell named by code. Separators are
// ignored wherever they appear; the eight letter symbols are accepted in
// either case.
func Decode(code string) (Coordinates, error) {
	idxLat, idxLon, err := parseIndexes(code)
	if err != nil {
		return Coordinates{}, err
	}
	fracLat := (float64(idxLat) + 0.5) / power
	fracLon := (float64(idxLon) + 0.5) / power
	return Coordinates{
		Latitude:  MaxLatitude - fracLat*span,
		Longitude: MinLongitude + fracLon*span,
	}, nil
}

// DecodeBounds returns the full extent of the cell named by code. Adjacent
// cells at the same precision share edges exactly.
func DecodeBounds(code string) (Bounds, error) {
	idxLat, idxLon, err := parseIndexes(code)
	if err != nil {
		return Bounds{}, err
	}
	minFracLat := float64(idxLat) / power
	maxFracLat := (float64(idxLat) + 1) / power
	minFracLon := float64(idxLon) / power
	maxFracLon := (float64(idxLon) + 1) / power
	return Bounds{
		MinLatitude:  MaxLatitude - maxFracLat*span,
		MaxLatitude:  MaxLatitude - minFracLat*span,
		MinLongitude: MinLongitude + minFracLon*span,
		MaxLongitude: MinLongitude + maxFracLon*span,
	}, nil
}
