package beep

import "math"

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Stop cue: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

type cue int

const (
	cueStart cue = iota
	cueStop
	cueError
)

// Player plays the recording and error cues. A disabled Player is silent.
type Player struct {
	enabled bool
	play    func(cue)
}

func New(enabled bool) *Player {
	return &Player{enabled: enabled, play: playCue}
}

func (p *Player) Start() { p.cue(cueStart) }
func (p *Player) Stop()  { p.cue(cueStop) }
func (p *Player) Error() { p.cue(cueError) }

func (p *Player) cue(c cue) {
	if p == nil || !p.enabled {
		return
	}
	p.play(c)
}

// samples renders a cue as mono 16-bit PCM at sampleRate.
func samples(c cue, tickDur float64) []int16 {
	switch c {
	case cueStart:
		return tick(startFreq, tickDur, startVolume, startDecay)
	case cueStop:
		return tick(stopFreq, tickDur, stopVolume, stopDecay)
	}
	return doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	out = append(out, b...)
	return out
}
