package digipin

import (
	"errors"
	"math"
	"testing"
)

func TestDecode_SeparatorInsensitive(t *testing.T) {
	want, err := Decode("39J-438-TJC7")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for _, in := range []string{
		"39J438TJC7",
		"-39J438TJC7-",
		"3-9-J-4-3-8-T-J-C-7",
		"39J--438--TJC7",
	} {
		got, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Decode(%q)=%+v want %+v", in, got, want)
		}
	}
}

func TestDecode_LowercaseAliases(t *testing.T) {
	want, err := Decode("39J-438-TJC7")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := Decode("39j-438-tjc7")
	if err != nil {
		t.Fatalf("Decode lowercase: %v", err)
	}
	if got != want {
		t.Fatalf("lowercase decode=%+v want %+v", got, want)
	}
}

func TestDecode_InvalidCharacter(t *testing.T) {
	for _, c := range []struct {
		in   string
		char byte
	}{
		{"39Z-438-TJC7", 'Z'},
		{"39J-438-TJC1", '1'},
		{"39J 438 TJC7", ' '},
	} {
		_, err := Decode(c.in)
		var charErr *InvalidCharacterError
		if !errors.As(err, &charErr) {
			t.Fatalf("Decode(%q) err=%v want InvalidCharacterError", c.in, err)
		}
		if charErr.Char != c.char {
			t.Fatalf("Decode(%q) Char=%q want %q", c.in, charErr.Char, c.char)
		}
	}
}

func TestDecode_InvalidCharacterBeatsShortLength(t *testing.T) {
	// 4 characters with a bad one in the middle: the character error wins
	_, err := Decode("39Z4")
	var charErr *InvalidCharacterError
	if !errors.As(err, &charErr) {
		t.Fatalf("err=%v want InvalidCharacterError", err)
	}
	if charErr.Char != 'Z' {
		t.Fatalf("Char=%q want 'Z'", charErr.Char)
	}
}

func TestDecode_TooShort(t *testing.T) {
	for _, c := range []struct {
		in    string
		count int
	}{
		{"39J438TJC", 9},
		{"39J-438", 6},
		{"", 0},
		{"---", 0},
	} {
		_, err := Decode(c.in)
		var lenErr *InvalidLengthError
		if !errors.As(err, &lenErr) {
			t.Fatalf("Decode(%q) err=%v want InvalidLengthError", c.in, err)
		}
		if lenErr.Count != c.count {
			t.Fatalf("Decode(%q) Count=%d want %d", c.in, lenErr.Count, c.count)
		}
	}
}

func TestDecode_TooManyIsSentinel(t *testing.T) {
	// 11 and 13 symbols both report the sentinel count 11
	for _, in := range []string{"39J438TJC77", "39J-438-TJC7-392", "39J438TJC7F"} {
		_, err := Decode(in)
		var lenErr *InvalidLengthError
		if !errors.As(err, &lenErr) {
			t.Fatalf("Decode(%q) err=%v want InvalidLengthError", in, err)
		}
		if lenErr.Count != 11 {
			t.Fatalf("Decode(%q) Count=%d want sentinel 11", in, lenErr.Count)
		}
	}
}

func TestDecodeBounds_MidpointMatchesDecode(t *testing.T) {
	for _, code := range []string{"39J-438-TJC7", "FFF-FFF-FFFF", "TTT-TTT-TTTT", "K45-62C-98JM"} {
		c, err := Decode(code)
		if err != nil {
			t.Fatalf("Decode(%q): %v", code, err)
		}
		b, err := DecodeBounds(code)
		if err != nil {
			t.Fatalf("DecodeBounds(%q): %v", code, err)
		}
		almostEq(t, (b.MinLatitude+b.MaxLatitude)/2, c.Latitude, 1e-9)
		almostEq(t, (b.MinLongitude+b.MaxLongitude)/2, c.Longitude, 1e-9)
	}
}

func TestDecodeBounds_CellSizeAndContainment(t *testing.T) {
	const cell = span / power

	lat, lon := 17.3850, 78.4867
	code, err := Encode(lat, lon)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := DecodeBounds(code)
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}

	almostEq(t, b.MaxLatitude-b.MinLatitude, cell, 1e-12)
	almostEq(t, b.MaxLongitude-b.MinLongitude, cell, 1e-12)

	if lat < b.MinLatitude || lat > b.MaxLatitude {
		t.Fatalf("latitude %v outside cell [%v, %v]", lat, b.MinLatitude, b.MaxLatitude)
	}
	if lon < b.MinLongitude || lon > b.MaxLongitude {
		t.Fatalf("longitude %v outside cell [%v, %v]", lon, b.MinLongitude, b.MaxLongitude)
	}
}

func TestDecodeBounds_OuterCellsTouchRectangleEdge(t *testing.T) {
	b, err := DecodeBounds("FFF-FFF-FFFF")
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}
	if b.MaxLatitude != MaxLatitude || b.MinLongitude != MinLongitude {
		t.Fatalf("northwest cell does not touch rectangle edge: %+v", b)
	}

	b, err = DecodeBounds("TTT-TTT-TTTT")
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}
	if math.Abs(b.MinLatitude-MinLatitude) > 1e-9 || math.Abs(b.MaxLongitude-MaxLongitude) > 1e-9 {
		t.Fatalf("southeast cell does not touch rectangle edge: %+v", b)
	}
}

func TestDecodeBounds_SameValidationAsDecode(t *testing.T) {
	if _, err := DecodeBounds("39J438TJC"); err == nil {
		t.Fatal("expected length error")
	}
	var charErr *InvalidCharacterError
	_, err := DecodeBounds("39!-438-TJC7")
	if !errors.As(err, &charErr) {
		t.Fatalf("err=%v want InvalidCharacterError", err)
	}
}
