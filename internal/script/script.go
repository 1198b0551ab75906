package script

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mantra/internal/services"
)

// BreakSeparator is placed between affirmations so the voice pauses three
// seconds between them.
const BreakSeparator = ` <break time="3.0s" /> `

// Preset is a built-in affirmation script.
type Preset struct {
	ID     string
	Name   string
	Script string
}

var presets = []Preset{
	{
		ID:     "confidence",
		Name:   "Confidence",
		Script: "I am confident in my abilities. I trust myself to handle any challenge that comes my way. My self-assurance grows stronger every day.",
	},
	{
		ID:     "self-love",
		Name:   "Self Love",
		Script: "I love and accept myself unconditionally. I am worthy of love and respect. I appreciate all aspects of who I am.",
	},
	{
		ID:     "ptsd",
		Name:   "PTSD",
		Script: "I am safe in the present moment. My past does not define me. I have the strength to heal and grow.",
	},
	{
		ID:     "avoidant",
		Name:   "Avoidant Attachment",
		Script: "I am capable of forming deep, meaningful connections. My worth is not determined by others. I deserve love and can safely open up to others.",
	},
}

// Presets returns the built-in scripts in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// Lookup finds a preset by id, case-insensitively.
func Lookup(id string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	ids := make([]string, 0, len(presets))
	for _, p := range presets {
		if p.ID == key {
			return p, nil
		}
		ids = append(ids, p.ID)
	}
	return Preset{}, &services.InvalidInputError{
		Field:  "script preset",
		Value:  fmt.Sprintf("%q", id),
		Reason: "want one of " + strings.Join(ids, ", "),
	}
}

// Line is one editable affirmation.
type Line struct {
	ID   string
	Text string
}

// Split breaks a script into sentences on '.', dropping empty fragments.
// Each line keeps its terminating period and gets a fresh id.
func Split(text string) []Line {
	var lines []Line
	for _, part := range strings.Split(text, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lines = append(lines, Line{ID: uuid.NewString(), Text: part + "."})
	}
	return lines
}

// Compose joins lines with BreakSeparator. It fails when there are no lines
// or any line is blank.
func Compose(lines []Line) (string, error) {
	if len(lines) == 0 {
		return "", &services.InvalidInputError{Field: "script", Value: "0 lines", Reason: "add at least one affirmation"}
	}
	texts := make([]string, len(lines))
	for i, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			return "", &services.InvalidInputError{
				Field:  "script line",
				Value:  i + 1,
				Reason: "affirmation text is empty",
			}
		}
		texts[i] = text
	}
	return strings.Join(texts, BreakSeparator), nil
}

// FromText splits free text and composes it in one step.
func FromText(text string) (string, error) {
	return Compose(Split(text))
}

// FromPreset composes the named preset.
func FromPreset(id string) (string, error) {
	p, err := Lookup(id)
	if err != nil {
		return "", err
	}
	return FromText(p.Script)
}
