//go:build darwin

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"murmur/log"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	cueBytes  map[cue][]byte
	soundOnce sync.Once

	// Playback state, read from the device callback
	playing atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: %v", err)
		return
	}

	// shorter ticks; CoreAudio adds its own tail
	cueBytes = map[cue][]byte{
		cueStart: toBytes(samples(cueStart, 0.03)),
		cueStop:  toBytes(samples(cueStop, 0.05)),
		cueError: toBytes(samples(cueError, 0)),
	}

	if err := initDevice(); err != nil {
		log.Warnf("beep device: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func toBytes(s []int16) []byte {
	buf := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	clear(pOutput)
	samples := playing.Load()
	if samples == nil {
		return
	}

	pos := playPos.Load()
	remaining := uint32(len(*samples)) - pos
	if remaining == 0 {
		playing.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(pOutput[:n], (*samples)[pos:pos+n])
	playPos.Store(pos + n)
}

func playCue(c cue) {
	soundOnce.Do(initSound)
	if malgoCtx == nil {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	b := cueBytes[c]
	playPos.Store(0)
	playing.Store(&b)

	if err := device.Start(); err != nil {
		// recreate after sleep/wake invalidated the device
		device.Uninit()
		if err := initDevice(); err != nil {
			playing.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playing.Store(nil)
		}
	}
}
