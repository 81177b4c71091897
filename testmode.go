package main

import (
	"fmt"
	"os"

	"murmur/audio"
	"murmur/encoder"
	"murmur/generator"
	"murmur/render"
	"murmur/terminal"
	"murmur/transcriber"
)

// runTestMode runs a headless session: the microphone replays a WAV file
// and keys come from a script on stdin (KEY <name>, LINE <text>, SLEEP <ms>).
func runTestMode(opts *options, stt transcriber.Transcriber, llm generator.Generator) int {
	clip, err := encoder.ReadWAV(opts.args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	steps, err := terminal.ParseScript(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading script: %v\n", err)
		return 1
	}

	opts.beep = false
	opts.inputDevice = ""
	opts.sampleRate = clip.SampleRate
	opts.channels = clip.Channels
	fake := audio.NewFakeContextPCM(clip.PCM, clip.SampleRate, clip.Channels)

	return startSession(opts, terminal.NewScripted(steps...), fake, stt, llm, render.New(os.Stdout), notifyInterrupts())
}
