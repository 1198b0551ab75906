package filters

import (
	"math"
	"strconv"
	"strings"
)

// StageID identifies a stage in the voice chain.
type StageID string

// Voice chain stages.
const (
	StageLeadIn    StageID = "lead_in"    // silent pad before the narration
	StageCompand   StageID = "compand"    // gentle dynamics control
	StagePreFilter StageID = "pre_filter" // band limit ahead of the echo
	StageEcho      StageID = "echo"       // hall reverb
	StageTone      StageID = "tone"       // post-echo equalisation
	StageGain      StageID = "gain"       // voice output level
)

// VoiceChainOrder is the fixed processing order of the voice stream.
var VoiceChainOrder = []StageID{
	StageLeadIn,
	StageCompand,
	StagePreFilter,
	StageEcho,
	StageTone,
	StageGain,
}

// Fixed chain constants.
const (
	LeadInMS = 6000

	// Echo rejects zero delay and zero decay, so rendering floors them.
	minEchoDelayMS = 1
	minEchoDecay   = 0.001
)

// Stage is one rendered step of the chain. A stage may expand to several
// comma-joined filters.
type Stage struct {
	ID      StageID
	Filters []string
}

// Spec renders the stage as a filter chain fragment.
func (s Stage) Spec() string {
	return strings.Join(s.Filters, ",")
}

// Chain is an ordered list of stages.
type Chain []Stage

// Spec renders the whole chain as a single comma-joined filter chain.
func (c Chain) Spec() string {
	parts := make([]string, 0, len(c))
	for _, stage := range c {
		if spec := stage.Spec(); spec != "" {
			parts = append(parts, spec)
		}
	}
	return strings.Join(parts, ",")
}

// IDs returns the stage identifiers in chain order.
func (c Chain) IDs() []StageID {
	ids := make([]StageID, 0, len(c))
	for _, stage := range c {
		ids = append(ids, stage.ID)
	}
	return ids
}

type voiceParams struct {
	reverb ReverbSettings
	gain   float64
}

type stageBuilderFunc func(voiceParams) []string

var stageBuilders = map[StageID]stageBuilderFunc{
	StageLeadIn:    voiceParams.leadIn,
	StageCompand:   voiceParams.compand,
	StagePreFilter: voiceParams.preFilter,
	StageEcho:      voiceParams.echo,
	StageTone:      voiceParams.tone,
	StageGain:      voiceParams.outputGain,
}

// BuildVoiceChain returns the six voice stages in VoiceChainOrder. Settings
// are expected to have passed Validate; the function itself never fails.
func BuildVoiceChain(reverb ReverbSettings, voiceGain float64) Chain {
	params := voiceParams{reverb: reverb, gain: voiceGain}
	chain := make(Chain, 0, len(VoiceChainOrder))
	for _, id := range VoiceChainOrder {
		chain = append(chain, Stage{ID: id, Filters: stageBuilders[id](params)})
	}
	return chain
}

func (voiceParams) leadIn() []string {
	ms := strconv.Itoa(LeadInMS)
	return []string{"adelay=" + ms + "|" + ms}
}

func (voiceParams) compand() []string {
	return []string{"compand=attacks=0.02:decays=0.15:points=-90/-90|-45/-45|-27/-27|0/-8:soft-knee=6"}
}

func (voiceParams) preFilter() []string {
	return []string{"lowpass=f=12000", "highpass=f=60"}
}

// echo maps Mix onto aecho's out_gain, which scales the whole voice bus, dry
// signal included. Mix 0 therefore silences the voice; it is not a dry/wet
// blend.
func (p voiceParams) echo() []string {
	delay := max(p.reverb.DelayMS, minEchoDelayMS)
	decay := math.Max(p.reverb.Decay, minEchoDecay)
	return []string{"aecho=1.0:" + formatNumber(p.reverb.Mix) + ":" + strconv.Itoa(delay) + ":" + formatNumber(decay)}
}

func (voiceParams) tone() []string {
	return []string{
		"equalizer=f=250:t=q:w=1:g=-2",
		"equalizer=f=3500:t=q:w=1:g=1",
		"equalizer=f=8000:t=h:w=0.7:g=-2",
	}
}

func (p voiceParams) outputGain() []string {
	return []string{"volume=" + formatNumber(p.gain)}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
