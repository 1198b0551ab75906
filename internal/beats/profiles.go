package beats

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mantra/internal/services"
)

// CarrierHz is the base tone every profile is built from.
const CarrierHz = 200.0

// Profile identifies one of the fixed binaural-beat presets.
type Profile string

// Beat profiles. None means no bed is rendered.
const (
	None  Profile = ""
	Delta Profile = "delta"
	Theta Profile = "theta"
	Alpha Profile = "alpha"
	Beta  Profile = "beta"
	Gamma Profile = "gamma"
)

type entry struct {
	beatHz      float64
	band        string
	description string
}

var table = map[Profile]entry{
	Delta: {beatHz: 2, band: "0.5-4 Hz", description: "Deep, dreamless sleep, relaxation"},
	Theta: {beatHz: 6, band: "4-8 Hz", description: "Deep relaxation, meditation, creativity"},
	Alpha: {beatHz: 10, band: "8-13 Hz", description: "Relaxed alertness, light meditation"},
	Beta:  {beatHz: 20, band: "13-38 Hz", description: "Focus and concentration"},
	Gamma: {beatHz: 40, band: "38-100 Hz", description: "High-level cognitive processing"},
}

// order is the display order, slowest beat first.
var order = []Profile{Delta, Theta, Alpha, Beta, Gamma}

// Parse resolves a profile name. Surrounding whitespace and case are ignored;
// an empty name or "none" resolves to None. Unknown names are rejected with
// an InvalidInputError.
func Parse(name string) (Profile, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || normalized == "none" {
		return None, nil
	}
	p := Profile(normalized)
	if _, ok := table[p]; !ok {
		return None, &services.InvalidInputError{
			Field:  "beat profile",
			Value:  fmt.Sprintf("%q", name),
			Reason: "want one of " + strings.Join(Names(), ", "),
		}
	}
	return p, nil
}

// All returns every profile in display order.
func All() []Profile {
	return append([]Profile(nil), order...)
}

// Names returns the profile identifiers in display order.
func Names() []string {
	names := make([]string, 0, len(order))
	for _, p := range order {
		names = append(names, string(p))
	}
	return names
}

// Valid reports whether p is one of the table entries. None is not valid.
func (p Profile) Valid() bool {
	_, ok := table[p]
	return ok
}

// IsNone reports whether p selects no bed.
func (p Profile) IsNone() bool {
	return p == None
}

// BeatHz returns the beat frequency for p, or 0 when p is not in the table.
func (p Profile) BeatHz() float64 {
	return table[p].beatHz
}

// Tones returns the left and right ear frequencies.
func (p Profile) Tones() (left, right float64) {
	return CarrierHz, CarrierHz + p.BeatHz()
}

// Band returns the brainwave band label, e.g. "4-8 Hz".
func (p Profile) Band() string {
	return table[p].band
}

// Description returns the short human description of the profile.
func (p Profile) Description() string {
	return table[p].description
}

// DisplayName returns the title-cased label, e.g. "Theta Waves".
func (p Profile) DisplayName() string {
	if p.IsNone() {
		return "None"
	}
	return cases.Title(language.English).String(string(p)) + " Waves"
}

func (p Profile) String() string {
	if p.IsNone() {
		return "none"
	}
	return string(p)
}
