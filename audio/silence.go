package audio

import "time"

const (
	SilenceTick         = 100 * time.Millisecond
	silenceWarnEvery    = 8 * time.Second
	silenceAutoCloseDur = 30 * time.Second
	speechMinRatio      = 0.10
	speechClearRatio    = 0.25 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // still silent, every 8s
	SilenceAutoClose              // 30s without speech
)

// SilenceMonitor turns per-tick speech flags into warnings for a recording
// that is not picking up a voice. One tick is SilenceTick of audio.
type SilenceMonitor struct {
	warnAt   int
	windowSz int

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	lastWarn    int
}

func NewSilenceMonitor() *SilenceMonitor {
	windowSz := int(silenceAutoCloseDur / SilenceTick)
	return &SilenceMonitor{
		warnAt:   int(silenceWarnEvery / SilenceTick),
		windowSz: windowSz,
		window:   make([]bool, windowSz),
	}
}

func (m *SilenceMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *SilenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)
	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastWarn = m.ticks
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}

	// auto-close is checked before repeat
	if m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		return SilenceAutoClose
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}
