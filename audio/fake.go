package audio

import (
	"sync"
	"time"

	"murmur/encoder"
)

const fakeFrameSize = 1024

// FakeContext plays back a fixed PCM buffer instead of a microphone.
type FakeContext struct {
	pcm      []byte
	rate     int
	channels int
	realtime bool

	DeviceList []DeviceInfo
	OpenErr    error // returned by NewCapture
	StartErr   error // returned by FakeCapture.Start

	mu   sync.Mutex
	last *FakeCapture
}

// NewFakeContext loads a WAV file to replay on every capture.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	clip, err := encoder.ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	return &FakeContext{pcm: clip.PCM, rate: clip.SampleRate, channels: clip.Channels, realtime: realtime}, nil
}

// NewFakeContextPCM replays raw S16LE pcm; nil pcm yields a silent device
// that only delivers what Emit pushes.
func NewFakeContextPCM(pcm []byte, rate, channels int) *FakeContext {
	return &FakeContext{pcm: pcm, rate: rate, channels: channels}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.DeviceList, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(dev *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	name := "fake"
	if dev != nil {
		name = dev.Name
	}
	c := &FakeCapture{
		pcm:      f.pcm,
		rate:     max(f.rate, 1),
		channels: max(f.channels, 1),
		realtime: f.realtime,
		startErr: f.StartErr,
		name:     name,
	}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// LastCapture returns the most recently opened capture, or nil.
func (f *FakeContext) LastCapture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type FakeCapture struct {
	pcm      []byte
	rate     int
	channels int
	realtime bool
	startErr error
	name     string

	mu       sync.Mutex
	cb       DataCallback
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

// Emit delivers a chunk as if the device had produced it. Chunks emitted
// while the device is stopped are ignored.
func (f *FakeCapture) Emit(chunk []byte) {
	f.mu.Lock()
	cb, running := f.cb, f.running
	f.mu.Unlock()
	if running && cb != nil {
		cb(chunk, uint32(len(chunk)/(2*f.channels)))
	}
}

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * 2 * f.channels
	if !f.realtime {
		for pos := 0; pos < len(f.pcm); pos += chunkBytes {
			f.Emit(f.pcm[pos:min(pos+chunkBytes, len(f.pcm))])
		}
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.rate)
	go func() {
		defer close(f.feedDone)
		for pos := 0; pos < len(f.pcm); pos += chunkBytes {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			f.Emit(f.pcm[pos:min(pos+chunkBytes, len(f.pcm))])
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.feedDone
	f.mu.Unlock()
	<-done
}

func (f *FakeCapture) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
