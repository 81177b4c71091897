package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/history"
	"murmur/log"
	"murmur/terminal"
)

type Recorder interface {
	Start() error
	Stop() (path string, err error)
	Discard()
	Recording() bool
}

// speechSource is implemented by recorders that can tell whether a voice is
// being picked up.
type speechSource interface {
	HasSpeechTick() bool
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, system string, turns []history.Turn, user string) (string, error)
}

type Renderer interface {
	User(text string)
	Assistant(text string)
	Error(msg string)
	Info(msg string)
	Warn(msg string)
	Prompt(label string)
}

type Cues interface {
	Start()
	Stop()
	Error()
}

type State int

const (
	AwaitingInput State = iota
	TextEntry
	Processing
	Shutdown
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case TextEntry:
		return "text-entry"
	case Processing:
		return "processing"
	case Shutdown:
		return "shutdown"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Keys struct {
	Toggle byte
	Stop   byte
	Text   byte
	Copy   byte
	Reset  byte
	Quit   []byte
}

func DefaultKeys() Keys {
	return Keys{
		Toggle: terminal.CtrlT,
		Stop:   terminal.CtrlS,
		Text:   terminal.CtrlR,
		Copy:   terminal.CtrlY,
		Reset:  terminal.CtrlN,
		// CtrlC only arrives as a byte where raw mode swallows the signal
		Quit: []byte{'q', 'Q', terminal.CtrlC},
	}
}

type Config struct {
	SystemPrompt   string
	KeepRecordings bool
	MaxHistory     int
	Keys           Keys
	PollInterval   time.Duration
}

type Deps struct {
	Terminal    terminal.Terminal
	Recorder    Recorder
	Transcriber Transcriber
	Generator   Generator
	Renderer    Renderer
	Cues        Cues                    // optional
	Copy        func(text string) error // optional
}

// Controller runs one interactive session: it reads keys, drives recording
// and turns speech or typed text into model replies.
type Controller struct {
	cfg    Config
	term   terminal.Terminal
	rec    Recorder
	stt    Transcriber
	llm    Generator
	out    Renderer
	cues   Cues
	copyFn func(string) error

	hist      *history.History
	silence   *audio.SilenceMonitor
	state     State
	lastReply string
	exchanges int

	shutdownOnce sync.Once
}

func New(cfg Config, d Deps) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Keys.Toggle == 0 {
		cfg.Keys = DefaultKeys()
	}
	return &Controller{
		cfg:    cfg,
		term:   d.Terminal,
		rec:    d.Recorder,
		stt:    d.Transcriber,
		llm:    d.Generator,
		out:    d.Renderer,
		cues:   d.Cues,
		copyFn: d.Copy,
		hist:   history.New(cfg.MaxHistory),
	}
}

func (c *Controller) State() State { return c.state }

// History returns a snapshot of the conversation so far.
func (c *Controller) History() []history.Turn { return c.hist.Turns() }

// Run reads keys until quit, end of input or ctx cancellation. Only failing
// to set up the terminal is returned as an error; everything else is
// rendered and the loop continues.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.term.EnterRaw(); err != nil {
		return fmt.Errorf("terminal setup: %w", err)
	}
	defer c.Shutdown()
	c.state = AwaitingInput

	for ctx.Err() == nil {
		key, ok, err := c.term.ReadKey(c.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("input closed")
			} else {
				log.Errorf("reading key: %v", err)
			}
			return nil
		}
		if !ok {
			c.tickSilence(ctx)
			continue
		}
		if c.dispatch(ctx, key) {
			return nil
		}
	}
	log.Info("session interrupted")
	return nil
}

// dispatch handles one key and reports whether the session should end.
func (c *Controller) dispatch(ctx context.Context, key byte) bool {
	k := c.cfg.Keys
	switch key {
	case k.Toggle:
		if c.rec.Recording() {
			c.finishRecording(ctx)
		} else {
			c.startRecording()
		}
	case k.Stop:
		if c.rec.Recording() {
			c.finishRecording(ctx)
		}
	case k.Text:
		c.textEntry(ctx)
	case k.Copy:
		c.copyLastReply()
	case k.Reset:
		c.hist.Reset()
		c.lastReply = ""
		c.out.Info("Started a new conversation.")
	default:
		for _, q := range k.Quit {
			if key == q {
				c.out.Info("Exiting.")
				return true
			}
		}
	}
	return false
}

// Shutdown restores the terminal and abandons any active recording. Only the
// first call has any effect.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.state = Shutdown
		if err := c.term.Restore(); err != nil {
			log.Errorf("restore terminal: %v", err)
		}
		c.rec.Discard()
		log.SessionEnd(c.exchanges)
	})
}

func (c *Controller) startRecording() {
	if err := c.rec.Start(); err != nil {
		c.fail("Failed to start recording", err)
		return
	}
	c.playStart()
	c.out.Info(fmt.Sprintf("Recording... (%s to stop)", terminal.KeyName(c.cfg.Keys.Toggle)))
	if _, ok := c.rec.(speechSource); ok {
		c.silence = audio.NewSilenceMonitor()
	}
}

// tickSilence runs once per idle poll while recording. Ticks assume the
// default poll interval of audio.SilenceTick. Auto-close ends the recording
// the same way the stop key does.
func (c *Controller) tickSilence(ctx context.Context) {
	if c.silence == nil || !c.rec.Recording() {
		return
	}
	switch c.silence.Tick(c.rec.(speechSource).HasSpeechTick()) {
	case audio.SilenceWarn:
		c.out.Warn("No speech detected. Check the input device (murmur -doctor lists them).")
		if c.cues != nil {
			c.cues.Error()
		}
	case audio.SilenceRepeat:
		if c.cues != nil {
			c.cues.Error()
		}
	case audio.SilenceWarnClear:
		log.Info("speech resumed")
	case audio.SilenceAutoClose:
		c.out.Info("Stopped recording after 30s without speech.")
		c.finishRecording(ctx)
	}
}

func (c *Controller) finishRecording(ctx context.Context) {
	c.state = Processing
	defer func() { c.state = AwaitingInput }()

	c.silence = nil
	path, err := c.rec.Stop()
	c.playStop()
	if err != nil {
		c.fail("Failed to stop recording", err)
		return
	}
	c.out.Info("Saved audio: " + path)

	text, err := c.stt.Transcribe(ctx, path)
	if !c.cfg.KeepRecordings {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warnf("removing recording: %v", rmErr)
		}
	}
	if err != nil {
		if ctx.Err() == nil {
			c.fail("Transcription failed", err)
		}
		return
	}

	c.out.User(text)
	c.respond(ctx, text)
}

// textEntry drops to cooperative mode for one line of typed input.
func (c *Controller) textEntry(ctx context.Context) {
	var line string
	err := c.withCooperative(func() error {
		c.state = TextEntry
		c.out.Prompt("You>")
		var err error
		line, err = c.term.ReadLine(ctx)
		return err
	})
	c.state = AwaitingInput
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, io.EOF) {
			c.fail("Reading input failed", err)
		}
		return
	}

	text := strings.TrimSpace(line)
	if text == "" {
		c.out.Info("Empty message, cancelled.")
		return
	}

	c.state = Processing
	defer func() { c.state = AwaitingInput }()
	c.out.User(text)
	c.respond(ctx, text)
}

// withCooperative restores the terminal for fn and re-enters raw mode on
// every exit path.
func (c *Controller) withCooperative(fn func() error) (err error) {
	if err := c.term.Restore(); err != nil {
		return err
	}
	defer func() {
		if rawErr := c.term.EnterRaw(); rawErr != nil {
			log.Errorf("re-entering raw mode: %v", rawErr)
			if err == nil {
				err = rawErr
			}
		}
	}()
	return fn()
}

// respond asks the model for a reply and records the exchange. History is
// left untouched on failure.
func (c *Controller) respond(ctx context.Context, text string) {
	reply, err := c.llm.Generate(ctx, c.cfg.SystemPrompt, c.hist.Turns(), text)
	if err != nil {
		if ctx.Err() == nil {
			c.fail("Generation failed", err)
		}
		return
	}
	c.hist.RecordExchange(text, reply)
	c.lastReply = reply
	c.exchanges++
	log.Exchange(text, reply)
	c.out.Assistant(reply)
}

func (c *Controller) copyLastReply() {
	if c.copyFn == nil {
		return
	}
	if c.lastReply == "" {
		c.out.Info("No reply to copy yet.")
		return
	}
	if err := c.copyFn(c.lastReply); err != nil {
		c.fail("Copy failed", err)
		return
	}
	c.out.Info("Copied last reply to clipboard.")
}

func (c *Controller) fail(what string, err error) {
	log.Errorf("%s: %v", what, err)
	c.out.Error(what + ": " + err.Error())
	if c.cues != nil {
		c.cues.Error()
	}
}

func (c *Controller) playStart() {
	if c.cues != nil {
		c.cues.Start()
	}
}

func (c *Controller) playStop() {
	if c.cues != nil {
		c.cues.Stop()
	}
}
