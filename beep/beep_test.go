package beep

import (
	"slices"
	"testing"
)

func TestPlayerCues(t *testing.T) {
	var got []cue
	p := &Player{enabled: true, play: func(c cue) { got = append(got, c) }}
	p.Start()
	p.Stop()
	p.Error()
	if !slices.Equal(got, []cue{cueStart, cueStop, cueError}) {
		t.Errorf("cues = %v", got)
	}
}

func TestDisabledPlayerSilent(t *testing.T) {
	called := false
	p := &Player{play: func(cue) { called = true }}
	p.Start()
	p.Error()
	var nilPlayer *Player
	nilPlayer.Stop()
	if called {
		t.Error("disabled player played a cue")
	}
}

func TestTickDecays(t *testing.T) {
	s := tick(startFreq, 0.2, startVolume, startDecay)
	if len(s) != int(sampleRate*0.2) {
		t.Fatalf("len = %d", len(s))
	}
	peak := func(part []int16) int16 {
		var m int16
		for _, v := range part {
			m = max(m, v, -v)
		}
		return m
	}
	if head, tail := peak(s[:1000]), peak(s[len(s)-1000:]); tail >= head {
		t.Errorf("envelope does not decay: head %d tail %d", head, tail)
	}
}

func TestErrorCueHasGap(t *testing.T) {
	s := samples(cueError, 0)
	beepLen := int(sampleRate * 0.08)
	gapLen := int(sampleRate * 0.05)
	if len(s) != 2*beepLen+gapLen {
		t.Fatalf("len = %d, want %d", len(s), 2*beepLen+gapLen)
	}
	for _, v := range s[beepLen : beepLen+gapLen] {
		if v != 0 {
			t.Fatal("gap is not silent")
		}
	}
}
