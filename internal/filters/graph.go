package filters

import (
	"fmt"
	"strconv"
	"strings"

	"mantra/internal/beats"
)

// Output format of every mixdown.
const (
	OutputCodec      = "pcm_s16le"
	OutputSampleRate = 44100
	OutputChannels   = 2
	OutputBitDepth   = 16
)

// BedDurationSeconds is the fixed length of the synthesized beat bed. Longer
// narrations continue without a bed once it ends.
const BedDurationSeconds = 30

// Input is one engine input: either a staged file or a lavfi source.
type Input struct {
	Format string // forced demuxer, e.g. "lavfi"; empty for staged files
	Source string
}

// Staged reports whether the input refers to a file in the staging directory.
func (in Input) Staged() bool {
	return in.Format == ""
}

// Graph is a complete engine invocation.
type Graph struct {
	Name          string
	Inputs        []Input
	FilterComplex string
	Map           string
	Codec         []string
	Output        string
}

// Args renders the invocation as ffmpeg arguments.
func (g Graph) Args() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range g.Inputs {
		if in.Format != "" {
			args = append(args, "-f", in.Format)
		}
		args = append(args, "-i", in.Source)
	}
	if g.FilterComplex != "" {
		args = append(args, "-filter_complex", g.FilterComplex)
	}
	if g.Map != "" {
		args = append(args, "-map", g.Map)
	}
	args = append(args, g.Codec...)
	return append(args, g.Output)
}

// StagedInputs lists the staged file names the graph reads.
func (g Graph) StagedInputs() []string {
	var names []string
	for _, in := range g.Inputs {
		if in.Staged() {
			names = append(names, in.Source)
		}
	}
	return names
}

func (g Graph) String() string {
	return g.Name + ": " + strings.Join(g.Args(), " ")
}

// SineSource renders a lavfi sine generator of the given length.
func SineSource(frequency float64, seconds int) string {
	return "sine=frequency=" + formatNumber(frequency) + ":duration=" + strconv.Itoa(seconds)
}

// BeatBedGraph synthesizes the two-channel bed for profile: left carries the
// carrier tone, right the carrier plus the beat.
func BeatBedGraph(profile beats.Profile, out string) (Graph, error) {
	if !profile.Valid() {
		return Graph{}, fmt.Errorf("beat bed: profile %q has no tones", profile)
	}
	left, right := profile.Tones()
	return Graph{
		Name: "beat_bed",
		Inputs: []Input{
			{Format: "lavfi", Source: SineSource(left, BedDurationSeconds)},
			{Format: "lavfi", Source: SineSource(right, BedDurationSeconds)},
		},
		FilterComplex: "[0:a][1:a]amerge=inputs=2[beats]",
		Map:           "[beats]",
		Output:        out,
	}, nil
}

// MixGraph runs the voice chain over voiceIn and, when bedIn is set, blends
// in the bed at bedGain. The mix lasts as long as the longer stream.
func MixGraph(voiceIn, bedIn string, chain Chain, bedGain float64, out string) Graph {
	voice := "[0:a]" + chain.Spec() + "[voice]"
	g := Graph{
		Name:   "mix",
		Inputs: []Input{{Source: voiceIn}},
		Map:    "[out]",
		Codec:  EncoderArgs(),
		Output: out,
	}
	if bedIn == "" {
		g.FilterComplex = voice + ";[voice]acopy[out]"
		return g
	}
	g.Inputs = append(g.Inputs, Input{Source: bedIn})
	g.FilterComplex = voice +
		";[1:a]volume=" + formatNumber(bedGain) + "[beats]" +
		";[voice][beats]amix=inputs=2:duration=longest[out]"
	return g
}

// EncoderArgs returns the fixed output encoding flags.
func EncoderArgs() []string {
	return []string{
		"-acodec", OutputCodec,
		"-ar", strconv.Itoa(OutputSampleRate),
		"-ac", strconv.Itoa(OutputChannels),
	}
}
