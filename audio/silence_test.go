package audio

import "testing"

func feedN(m *SilenceMonitor, speech bool, n int) SilenceEvent {
	var last SilenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func TestSilenceWarnAfter8s(t *testing.T) {
	m := NewSilenceMonitor()
	for i := 0; i < 79; i++ {
		if ev := m.Tick(false); ev != SilenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("expected SilenceWarn at tick 80, got %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := NewSilenceMonitor()
	feedN(m, false, 80)
	for i := 0; i < 80; i++ {
		if m.Tick(true) == SilenceWarnClear {
			return
		}
	}
	t.Fatal("expected SilenceWarnClear after speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := NewSilenceMonitor()
	for i := 0; i < 200; i++ {
		if ev := m.Tick(true); ev != SilenceNone {
			t.Fatalf("unexpected event %d during speech at tick %d", ev, i)
		}
	}
}

func TestSilenceSequence(t *testing.T) {
	m := NewSilenceMonitor()
	events := map[int]SilenceEvent{}
	for i := 1; i <= 300; i++ {
		if ev := m.Tick(false); ev != SilenceNone {
			events[i] = ev
		}
	}
	want := map[int]SilenceEvent{80: SilenceWarn, 160: SilenceRepeat, 240: SilenceRepeat, 300: SilenceAutoClose}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for tick, ev := range want {
		if events[tick] != ev {
			t.Errorf("tick %d: got %d, want %d", tick, events[tick], ev)
		}
	}
}

func TestAutoClosePreventedBySpeech(t *testing.T) {
	m := NewSilenceMonitor()
	for i := 0; i < 500; i++ {
		speech := i%10 < 7
		if ev := m.Tick(speech); ev == SilenceAutoClose {
			t.Fatalf("unexpected auto-close with speech at tick %d", i)
		}
	}
}

func TestWarnStaysDuringNoise(t *testing.T) {
	m := NewSilenceMonitor()
	feedN(m, false, 80)

	// occasional false positives below the clear threshold
	for i := 0; i < 80; i++ {
		if ev := m.Tick(i%10 == 0); ev == SilenceWarnClear {
			t.Fatalf("warning cleared at tick %d with 10%% speech", i)
		}
	}
}
