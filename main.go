// ABOUTME: Entry point for the rhythm practice player
// ABOUTME: Wires the session to keyboard TUI, MIDI input and websocket UI feed
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/internal/broadcast"
	"github.com/virgo-dtx/rhythm-go/internal/midiin"
	"github.com/virgo-dtx/rhythm-go/internal/ui"
	"github.com/virgo-dtx/rhythm-go/internal/version"
	"github.com/virgo-dtx/rhythm-go/pkg/chart"
	"github.com/virgo-dtx/rhythm-go/pkg/rhythm"
	"github.com/virgo-dtx/rhythm-go/pkg/trigger"
)

var (
	bpm      = flag.Float64("bpm", 120, "Tempo in beats per minute")
	beats    = flag.Uint("beats", 4, "Beats per measure")
	noteVal  = flag.Uint("note-value", 4, "Time signature note value")
	speed    = flag.Float64("speed", 1.0, "Practice speed multiplier (0.25-1.5)")
	measures = flag.Uint("measures", 16, "Length of the built-in practice chart")
	midiPort = flag.String("midi", "", "MIDI input port name substring (empty: keyboard only)")
	wsAddr   = flag.String("ws", "", "Listen address for the websocket UI feed (empty: disabled)")
	noAudio  = flag.Bool("no-audio", false, "Disable click playback (silent mode)")
	logFile  = flag.String("log-file", "rhythm-practice.log", "Log file path")
)

func main() {
	flag.Parse()

	logger, err := fileLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("product", version.Product),
		zap.String("version", version.Version))

	backend := trigger.BackendOto
	if *noAudio {
		backend = trigger.BackendNull
	}

	session := rhythm.New(rhythm.Config{
		Backend: backend,
		Logger:  logger,
	})

	if err := session.Configure(*bpm, *beats, *noteVal, practiceChart(*beats, *measures)); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := session.SetSpeed(*speed); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if *wsAddr != "" {
		hub := broadcast.NewHub(logger)
		session.OnBeat(hub.BeatFired)
		session.OnMatch(hub.MatchMade)
		defer hub.Close()

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		go func() {
			if err := http.ListenAndServe(*wsAddr, mux); err != nil {
				logger.Warn("websocket feed stopped", zap.Error(err))
			}
		}()
		logger.Info("websocket ui feed listening", zap.String("addr", *wsAddr))
	}

	if *midiPort != "" {
		listener, err := midiin.Open(*midiPort, func(voice chart.DrumVoice, velocity float64, at time.Time) {
			session.SubmitInput(voice, velocity, at)
		}, logger)
		if err != nil {
			// Missing hardware degrades to keyboard-only practice.
			logger.Warn("midi input unavailable", zap.Error(err))
		} else {
			defer listener.Close()
		}
	}

	if err := session.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start error: %v\n", err)
		os.Exit(1)
	}
	defer session.Stop()

	p := ui.Run(session)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ui error: %v\n", err)
		os.Exit(1)
	}
}

// fileLogger builds a production logger writing to the given file, so
// log lines never corrupt the TUI.
func fileLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

// practiceChart generates a basic rock pattern: bass on the odd beats,
// snare on the even ones, closed hi-hat eighth notes throughout.
func practiceChart(beatsPerMeasure, measures uint) []chart.Note {
	if beatsPerMeasure == 0 || measures == 0 {
		return nil
	}

	var notes []chart.Note
	per := float64(beatsPerMeasure)
	for m := uint(1); m <= measures; m++ {
		for b := uint(0); b < beatsPerMeasure; b++ {
			at := float64(b) / per
			voice := chart.BassDrum
			if b%2 == 1 {
				voice = chart.Snare
			}
			notes = append(notes, chart.Note{Voice: voice, Measure: m, Offset: at})
			notes = append(notes, chart.Note{Voice: chart.HiHatClose, Measure: m, Offset: at})
			half := at + 0.5/per
			if half < 1 {
				notes = append(notes, chart.Note{Voice: chart.HiHatClose, Measure: m, Offset: half})
			}
		}
	}
	return notes
}
