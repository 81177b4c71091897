package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/term"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/doctor"
	"murmur/encoder"
	"murmur/generator"
	"murmur/log"
	"murmur/render"
	"murmur/session"
	"murmur/shutdown"
	"murmur/terminal"
	"murmur/transcriber"
)

var version = "dev"

type options struct {
	model         string
	system        string
	whisperBinary string
	whisperModel  string
	threads       int
	sampleRate    int
	channels      int
	inputDevice   string
	keep          bool
	recordDir     string
	maxHistory    int
	language      string
	noGPU         bool

	whisperTimeout time.Duration
	ollamaTimeout  time.Duration
	ollamaBinary   string
	ollamaURL      string
	format         encoder.Format
	maxRecord      time.Duration
	beep           bool
	logPath        string
	profile        string

	setup   bool
	doctor  bool
	version bool
	test    bool
	args    []string
}

// parseFlags reads the command line. Flags that have an environment
// fallback take their default from it.
func parseFlags(args []string, getenv func(string) string) (*options, error) {
	envOr := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	o := &options{}
	var format string
	fs := flag.NewFlagSet("murmur", flag.ContinueOnError)
	fs.StringVar(&o.model, "model", envOr("MURMUR_MODEL", "llama3"), "Ollama model name (env MURMUR_MODEL)")
	fs.StringVar(&o.system, "system", envOr("MURMUR_SYSTEM", "You are a concise assistant."), "System prompt (env MURMUR_SYSTEM)")
	fs.StringVar(&o.whisperBinary, "whisper-binary", envOr("MURMUR_WHISPER_BINARY", "./whisper.cpp/build/bin/whisper-cli"), "Path to whisper-cli (env MURMUR_WHISPER_BINARY)")
	fs.StringVar(&o.whisperModel, "whisper-model", envOr("MURMUR_WHISPER_MODEL", "./whisper.cpp/models/ggml-base.en.bin"), "Path to the whisper model (env MURMUR_WHISPER_MODEL)")
	fs.IntVar(&o.threads, "threads", 4, "Threads for whisper.cpp")
	fs.IntVar(&o.sampleRate, "sample-rate", 16000, "Recording sample rate in Hz")
	fs.IntVar(&o.channels, "channels", 1, "Recording channels (1 or 2)")
	fs.StringVar(&o.inputDevice, "input-device", getenv("MURMUR_INPUT_DEVICE"), "Input device index or name (env MURMUR_INPUT_DEVICE)")
	fs.BoolVar(&o.keep, "keep-recordings", false, "Keep recordings after transcription")
	fs.StringVar(&o.recordDir, "record-dir", ".voice-recordings", "Directory for recordings")
	fs.IntVar(&o.maxHistory, "max-history", 10, "Exchanges kept as context (0 = none)")
	fs.StringVar(&o.language, "language", "", "Language code for transcription (empty = model default)")
	fs.BoolVar(&o.noGPU, "no-gpu", false, "Disable GPU in whisper.cpp")
	fs.DurationVar(&o.whisperTimeout, "whisper-timeout", 5*time.Minute, "Transcription timeout")
	fs.DurationVar(&o.ollamaTimeout, "ollama-timeout", 120*time.Second, "Generation timeout")
	fs.StringVar(&o.ollamaBinary, "ollama-binary", "ollama", "Ollama CLI binary")
	fs.StringVar(&o.ollamaURL, "ollama-url", getenv("OLLAMA_HOST"), "Use the Ollama HTTP API at this address instead of the CLI (env OLLAMA_HOST)")
	fs.StringVar(&format, "format", "wav", "Format for kept recordings: wav or flac")
	fs.DurationVar(&o.maxRecord, "max-record", 10*time.Minute, "Longest recording kept; later audio is dropped (0 = unbounded)")
	fs.BoolVar(&o.beep, "beep", true, "Play audio cues")
	fs.StringVar(&o.logPath, "logpath", "", "Log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&o.profile, "profile", "", "Enable pprof profiling server (e.g., localhost:6060)")
	fs.BoolVar(&o.setup, "setup", false, "Pick the input device interactively")
	fs.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.BoolVar(&o.test, "test", false, "Test mode: murmur -test <wav-file>, key script on stdin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.args = fs.Args()

	var err error
	if o.format, err = encoder.ParseFormat(format); err != nil {
		return nil, err
	}
	switch {
	case o.threads < 1:
		return nil, fmt.Errorf("-threads must be positive, got %d", o.threads)
	case o.sampleRate < 1:
		return nil, fmt.Errorf("-sample-rate must be positive, got %d", o.sampleRate)
	case o.channels != 1 && o.channels != 2:
		return nil, fmt.Errorf("-channels must be 1 or 2, got %d", o.channels)
	case o.test && len(o.args) == 0:
		return nil, errors.New("usage: murmur -test <wav-file>")
	}
	return o, nil
}

func newTranscriber(o *options) *transcriber.WhisperCpp {
	w := transcriber.NewWhisperCpp(o.whisperBinary, o.whisperModel, o.threads)
	w.NoGPU = o.noGPU
	w.Timeout = o.whisperTimeout
	w.SetLanguage(o.language)
	return w
}

func newGenerator(o *options) generator.Generator {
	if o.ollamaURL != "" {
		return generator.NewOllamaHTTP(o.ollamaURL, o.model, o.ollamaTimeout)
	}
	return generator.NewOllama(o.ollamaBinary, o.model, o.ollamaTimeout)
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.version {
		fmt.Printf("murmur %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if opts.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", opts.profile)
			if err := http.ListenAndServe(opts.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	stt := newTranscriber(opts)
	llm := newGenerator(opts)

	if opts.doctor {
		cfg := doctor.Config{
			Out:          os.Stdout,
			Whisper:      stt,
			OllamaBinary: opts.ollamaBinary,
			NewAudio:     audio.NewContext,
			Device:       opts.inputDevice,
			RecordDir:    opts.recordDir,
			IsTerminal:   func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		}
		if h, ok := llm.(*generator.OllamaHTTP); ok {
			cfg.OllamaHTTP = h
		}
		return doctor.Run(cfg)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if opts.test {
		return runTestMode(opts, stt, llm)
	}

	if err := stt.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run murmur -doctor for details.")
		return 1
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	if opts.setup {
		dev, err := audio.SelectDevice(actx)
		switch {
		case errors.Is(err, audio.ErrSelectionCancelled):
			return 0
		case err != nil:
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Falling back to default device")
		default:
			opts.inputDevice = dev.Name
			fmt.Printf("Using %s (pass -input-device %s to skip this step)\n", dev.Name, strconv.Quote(dev.Name))
		}
	}

	out := render.New(os.Stdout)
	dev, err := audio.ResolveDevice(actx, opts.inputDevice)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if dev != nil && audio.IsBluetooth(dev.Name) {
		out.Warn(dev.Name + " looks like a Bluetooth headset; recording quality may drop")
	}

	tty, err := terminal.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return startSession(opts, tty, actx, stt, llm, out, notifyInterrupts())
}

// startSession wires the controller and runs it until quit or until the
// first signal on sigCh cancels it.
func startSession(opts *options, tty terminal.Terminal, actx audio.Context, stt transcriber.Transcriber, llm generator.Generator, out *render.Renderer, sigCh <-chan os.Signal) int {
	rec := audio.NewRecorder(audio.RecorderConfig{
		Context:     actx,
		Device:      opts.inputDevice,
		SampleRate:  opts.sampleRate,
		Channels:    opts.channels,
		Dir:         opts.recordDir,
		Keep:        opts.keep,
		Format:      opts.format,
		MaxDuration: opts.maxRecord,
	})

	ctrl := session.New(session.Config{
		SystemPrompt:   opts.system,
		KeepRecordings: opts.keep,
		MaxHistory:     opts.maxHistory,
		Keys:           session.DefaultKeys(),
	}, session.Deps{
		Terminal:    tty,
		Recorder:    rec,
		Transcriber: stt,
		Generator:   llm,
		Renderer:    out,
		Cues:        beep.New(opts.beep),
		Copy:        copyFunc(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		watchInterrupts(sigCh, cancel, done)
	}()
	defer func() {
		close(done)
		<-watched
	}()

	log.SessionStart(opts.model, llm.Name(), string(opts.format), opts.maxHistory)
	printBanner(out, opts, stt, llm)

	if err := ctrl.Run(ctx); err != nil {
		log.Errorf("session: %v", err)
		out.Error(err.Error())
		return 1
	}
	return 0
}

// notifyInterrupts subscribes to the platform's interrupt signals.
func notifyInterrupts() <-chan os.Signal {
	sigCh := make(chan os.Signal, 2)
	shutdown.Notify(sigCh)
	return sigCh
}

// watchInterrupts cancels the session on the first signal. Later signals
// arrive while shutdown is under way and are ignored, so the session always
// ends through Controller.Shutdown. It returns once done is closed.
func watchInterrupts(sigCh <-chan os.Signal, cancel context.CancelFunc, done <-chan struct{}) {
	interrupted := false
	for {
		select {
		case <-done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if interrupted {
				log.Info("interrupt ignored, shutdown in progress")
				continue
			}
			interrupted = true
			log.Info("interrupt received, shutting down")
			cancel()
		}
	}
}

func copyFunc() func(string) error {
	if clipboard.Available() {
		return clipboard.Copy
	}
	return func(string) error {
		return errors.New("no clipboard tool found (install xclip, xsel or wl-clipboard)")
	}
}

func printBanner(out *render.Renderer, opts *options, stt transcriber.Transcriber, llm generator.Generator) {
	k := session.DefaultKeys()
	sttLabel := stt.Name()
	if lang := stt.GetLanguage(); lang != "" {
		sttLabel += " (" + lang + ")"
	}
	out.Banner("murmur "+version, [][2]string{
		{terminal.KeyName(k.Toggle), "start/stop recording"},
		{terminal.KeyName(k.Stop), "stop recording"},
		{terminal.KeyName(k.Text), "type a message"},
		{terminal.KeyName(k.Copy), "copy last reply"},
		{terminal.KeyName(k.Reset), "new conversation"},
		{"q", "quit"},
	})
	out.Info(fmt.Sprintf("[%s | %s | %s %s]", opts.format, sttLabel, llm.Name(), opts.model))
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}
