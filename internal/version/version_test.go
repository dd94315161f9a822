package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColored(t *testing.T) {
	orig := Version
	origNoColor := color.NoColor
	defer func() {
		Version = orig
		color.NoColor = origNoColor
	}()
	color.NoColor = true

	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
		{" 2.0.0 ", "2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			if got := Colored(); got != tt.want {
				t.Errorf("Colored() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColoredWrapsComponents(t *testing.T) {
	orig := Version
	origNoColor := color.NoColor
	defer func() {
		Version = orig
		color.NoColor = origNoColor
	}()
	color.NoColor = false

	Version = "1.2.3"
	if got := Colored(); got == "1.2.3" {
		t.Errorf("Colored() = %q, expected escape codes", got)
	}
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}
