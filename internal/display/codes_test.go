package display

import "testing"

func TestDescription(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{3, "Overcast"},
		{45, "Fog"},
		{63, "Moderate rain"},
		{95, "Thunderstorm"},
		{99, "Thunderstorm with heavy hail"},
		{4, UnknownDescription},
		{-1, UnknownDescription},
	}
	for _, tt := range tests {
		if got := Description(tt.code); got != tt.want {
			t.Errorf("Description(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIconCode(t *testing.T) {
	tests := []struct {
		code, isDay int
		want        string
	}{
		{0, 1, "01d"},
		{0, 0, "01n"},
		{2, 1, "03d"},
		{48, 0, "50n"},
		{65, 1, "10d"},
		{86, 0, "13n"},
		{96, 1, "11d"},
		{1000, 1, UnknownIcon},
	}
	for _, tt := range tests {
		if got := IconCode(tt.code, tt.isDay); got != tt.want {
			t.Errorf("IconCode(%d, %d) = %q, want %q", tt.code, tt.isDay, got, tt.want)
		}
	}
}

func TestIconCode_DayNightDiffer(t *testing.T) {
	for code := range iconBases {
		if IconCode(code, 1) == IconCode(code, 0) {
			t.Errorf("IconCode(%d) day and night variants are identical", code)
		}
	}
}

func TestTablesCoverSameCodes(t *testing.T) {
	for code := range descriptions {
		if _, ok := iconBases[code]; !ok {
			t.Errorf("code %d has a description but no icon", code)
		}
	}
	for code := range iconBases {
		if _, ok := descriptions[code]; !ok {
			t.Errorf("code %d has an icon but no description", code)
		}
	}
}
