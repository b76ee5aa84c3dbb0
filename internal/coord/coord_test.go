package coord_test

import (
	"testing"

	"codeberg.org/mutker/obsctl/internal/coord"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"degrees minutes seconds", "45d30m00s", 45.5},
		{"negative dms", "-60d50m02s", -60.83389},
		{"degree symbol", "-60°50'02\"", -60.83389},
		{"fractional seconds", "219d54m07.5s", 219.90208},
		{"hours", "12h30m00s", 12.5},
		{"colon triple", "58:13:59.15", 58.23310},
		{"negative colon", "-05:30:00", -5.5},
		{"decimal", "123.25", 123.25},
		{"explicit plus", "+12h00m00s", 12},
		{"padded", "  10:00:00 ", 10},
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"garbage decimal", "north", 0},
		{"nan literal", "NaN", 0},
		{"single segment dms", "45d", 45},
		{"two segment hms", "1h30m", 1.5},
		{"extra segments ignored", "1:30:00:99", 1.5},
		{"bad segment skipped", "10:xx:36", 10.01},
		{"double minus decimal", "--5", 0},
		{"minus plus decimal", "-+5", 0},
		{"double minus dms", "--45d30m", 0},
		{"spaced double sign", "- -12:00:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, coord.Parse(tt.input), 1e-4)
		})
	}
}

func TestParseNegativeDecimal(t *testing.T) {
	// The sign must be applied exactly once for plain decimals too.
	assert.Equal(t, -33.85, coord.Parse("-33.85"))
	assert.Equal(t, 33.85, coord.Parse("33.85"))
}

func TestParseSignSymmetry(t *testing.T) {
	inputs := []string{
		"45d30m00s", "60d50m02s", "12h30m00s", "58:13:59.15",
		"0d00m30s", "23h59m59s", "1:02:03", "17.125", "89°59'59\"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, -coord.Parse(in), coord.Parse("-"+in))
		})
	}
}

func TestParseSexagesimalTime(t *testing.T) {
	h, ok := coord.ParseSexagesimalTime("10:00:00")
	assert.True(t, ok)
	assert.Equal(t, 10.0, h)

	h, ok = coord.ParseSexagesimalTime("18:45:36")
	assert.True(t, ok)
	assert.InDelta(t, 18.76, h, 1e-9)

	for _, bad := range []string{"", "10:00", "10:00:00:00", "aa:bb:cc", "10h00m00s", "10::00"} {
		_, ok := coord.ParseSexagesimalTime(bad)
		assert.False(t, ok, bad)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12h30m00.0s", coord.FormatHMS(12.5))
	assert.Equal(t, "-60°50'02.0\"", coord.FormatDMS(coord.Parse("-60d50m02s")))
	assert.Equal(t, "+45°30'00.0\"", coord.FormatDMS(45.5))
	assert.Equal(t, "00h01m00.0s", coord.FormatHMS(59.99/3600))
	assert.Equal(t, "10:00:00", coord.FormatClock(10))
	assert.Equal(t, "23:00:00", coord.FormatClock(-1))
	assert.Equal(t, "01:00:00", coord.FormatClock(25))
}
