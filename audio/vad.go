package audio

import (
	"fmt"
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadMode     = 3
	vadFrameMs  = 20
	vadDebounce = 3 // consecutive speech frames to confirm voice

	speechThreshold = 0.10 // share of frames in a tick that must be speech
)

// vadProcessor classifies incoming PCM as speech or not, 20ms at a time.
// Only the first channel of interleaved input is analysed.
type vadProcessor struct {
	vad        *webrtcvad.VAD
	rate       int
	channels   int
	frameBytes int

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	speechRun     int
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func newVADProcessor(rate, channels int) (*vadProcessor, error) {
	switch rate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("voice detection does not support %d Hz", rate)
	}
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadProcessor{
		vad:        v,
		rate:       rate,
		channels:   max(channels, 1),
		frameBytes: rate * vadFrameMs / 1000 * 2,
	}, nil
}

func (p *vadProcessor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = appendFirstChannel(p.buf, data, p.channels)
	for len(p.buf) >= p.frameBytes {
		frame := p.buf[:p.frameBytes]

		active, err := p.vad.Process(p.rate, frame)
		p.buf = p.buf[p.frameBytes:]
		if err != nil {
			continue
		}
		p.totalFrames++
		if active {
			p.speechFrames++
			p.speechRun++
			if p.speechRun >= vadDebounce {
				p.voiceDetected = true
			}
		} else {
			p.speechRun = 0
		}
	}
}

func appendFirstChannel(dst, data []byte, channels int) []byte {
	if channels == 1 {
		return append(dst, data...)
	}
	stride := 2 * channels
	for i := 0; i+1 < len(data); i += stride {
		dst = append(dst, data[i], data[i+1])
	}
	return dst
}

func (p *vadProcessor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

func (p *vadProcessor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

// HasSpeechTick reports whether enough of the frames since the previous call
// were speech.
func (p *vadProcessor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.totalFrames - p.tickTotal
	s := p.speechFrames - p.tickSpeech
	p.tickTotal, p.tickSpeech = p.totalFrames, p.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechThreshold
}
