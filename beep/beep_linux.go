//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"

	"murmur/log"
)

var (
	cues     map[cue][]int16
	cuesOnce sync.Once
)

func playCue(c cue) {
	cuesOnce.Do(func() {
		cues = map[cue][]int16{
			cueStart: samples(cueStart, 0.2),
			cueStop:  samples(cueStop, 0.2),
			cueError: samples(cueError, 0),
		}
	})
	go playSamples(cues[c])
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName("murmur"))
	if err != nil {
		log.Warnf("beep: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		log.Warnf("beep playback: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
