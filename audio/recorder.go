package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/encoder"
	"murmur/log"
)

type RecorderConfig struct {
	Context     Context
	Device      string // selector, see ResolveDevice
	SampleRate  int
	Channels    int
	Dir         string
	Keep        bool
	Format      encoder.Format // used for kept recordings; temporary files are always WAV
	MaxDuration time.Duration  // 0 = unbounded
}

// Recorder owns at most one active capture and turns its audio into a file
// on Stop.
type Recorder struct {
	cfg RecorderConfig
	now func() time.Time

	mu      sync.Mutex
	capture CaptureDevice
	queue   *chunkQueue
	vad     *vadProcessor
	started time.Time
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.Format == "" {
		cfg.Format = encoder.WAV
	}
	return &Recorder{cfg: cfg, now: time.Now}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture != nil {
		return ErrAlreadyRecording
	}

	dev, err := ResolveDevice(r.cfg.Context, r.cfg.Device)
	if err != nil {
		return err
	}

	capture, err := r.cfg.Context.NewCapture(dev, CaptureConfig{
		SampleRate: uint32(r.cfg.SampleRate),
		Channels:   uint32(r.cfg.Channels),
	})
	if err != nil {
		return &DeviceError{Device: r.cfg.Device, Err: err}
	}

	q := newChunkQueue(r.byteLimit())
	vad, err := newVADProcessor(r.cfg.SampleRate, r.cfg.Channels)
	if err != nil {
		log.Warnf("silence detection disabled: %v", err)
	}
	capture.SetCallback(func(data []byte, _ uint32) {
		q.push(data)
		if vad != nil {
			vad.Process(data)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return &DeviceError{Device: r.cfg.Device, Err: err}
	}

	r.capture = capture
	r.queue = q
	r.vad = vad
	r.started = r.now()
	log.Infof("recording started on %s", capture.DeviceName())
	return nil
}

// HasSpeechTick reports whether the active recording heard a voice since the
// previous call. It is true when voice detection is unavailable.
func (r *Recorder) HasSpeechTick() bool {
	r.mu.Lock()
	vad := r.vad
	r.mu.Unlock()
	if vad == nil {
		return true
	}
	return vad.HasSpeechTick()
}

func (r *Recorder) byteLimit() int {
	if r.cfg.MaxDuration <= 0 {
		return 0
	}
	perSecond := r.cfg.SampleRate * r.cfg.Channels * 2
	return int(r.cfg.MaxDuration.Seconds() * float64(perSecond))
}

// halt stops the device before the queue is touched so no callback can
// append after the drain. Caller holds r.mu.
func (r *Recorder) halt() []byte {
	r.capture.Stop()
	r.capture.ClearCallback()
	r.capture.Close()
	r.capture = nil
	if r.vad != nil {
		total, speech := r.vad.Stats()
		log.Infof("voice detection: %d/%d frames speech, voice=%v", speech, total, r.vad.VoiceDetected())
		r.vad = nil
	}

	chunks, dropped := r.queue.drain()
	r.queue = nil
	pcm := Concat(chunks)
	log.Infof("recording stopped after %s: %d chunks, %d bytes, %d dropped",
		r.now().Sub(r.started).Round(time.Millisecond), len(chunks), len(pcm), dropped)
	return pcm
}

// Stop ends the recording and writes it to a file in the configured
// directory. Nothing is written when no audio arrived.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture == nil {
		return "", ErrNotRecording
	}

	pcm := r.halt()
	if len(pcm) == 0 {
		return "", ErrNoAudioCaptured
	}
	return r.write(pcm)
}

// Discard stops an active recording without reporting errors. The audio is
// only persisted in keep mode.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture == nil {
		return
	}
	pcm := r.halt()
	if r.cfg.Keep && len(pcm) > 0 {
		if path, err := r.write(pcm); err != nil {
			log.Warnf("saving interrupted recording: %v", err)
		} else {
			log.Infof("saved interrupted recording to %s", path)
		}
	}
}

func (r *Recorder) write(pcm []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recording directory: %w", err)
	}

	id := uuid.NewString()[:8]
	name := "rec-" + id + ".tmp.wav"
	format := encoder.WAV
	if r.cfg.Keep {
		format = r.cfg.Format
		name = "rec-" + r.started.Format("20060102-150405") + "-" + id + format.Ext()
	}

	path := filepath.Join(r.cfg.Dir, name)
	if err := encoder.WriteFile(path, format, pcm, r.cfg.SampleRate, r.cfg.Channels); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing recording: %w", err)
	}
	return path, nil
}
