// ABOUTME: Diagnostic tool for MIDI drum input
// ABOUTME: Lists ports or echoes classified hits against a metronome chart
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/virgo-dtx/rhythm-go/internal/midiin"
	"github.com/virgo-dtx/rhythm-go/pkg/chart"
	"github.com/virgo-dtx/rhythm-go/pkg/rhythm"
	"github.com/virgo-dtx/rhythm-go/pkg/trigger"
)

var (
	list     = flag.Bool("list", false, "List MIDI input ports and exit")
	port     = flag.String("port", "", "MIDI input port name substring (empty: first port)")
	bpm      = flag.Float64("bpm", 120, "Metronome tempo")
	beats    = flag.Uint("beats", 4, "Beats per measure")
	noAudio  = flag.Bool("no-audio", false, "Disable the metronome click")
	measures = flag.Uint("measures", 999, "Chart length (quarter notes on every lane)")
)

func main() {
	flag.Parse()

	if *list {
		ports, err := midiin.Ports()
		if err != nil {
			log.Fatalf("list ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("no MIDI input ports")
			return
		}
		for i, name := range ports {
			fmt.Printf("%2d: %s\n", i, name)
		}
		return
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	backend := trigger.BackendOto
	if *noAudio {
		backend = trigger.BackendNull
	}

	session := rhythm.New(rhythm.Config{Backend: backend, Logger: logger})
	if err := session.Configure(*bpm, *beats, 4, tapChart(*beats, *measures)); err != nil {
		log.Fatalf("configure: %v", err)
	}

	listener, err := midiin.Open(*port, func(voice chart.DrumVoice, velocity float64, at time.Time) {
		res := session.SubmitInput(voice, velocity, at)
		if res.Note == nil {
			fmt.Printf("%-12s vel=%.2f  MISS (no note in window)\n", voice, velocity)
			return
		}
		fmt.Printf("%-12s vel=%.2f  %-7s %+.1fms  (measure %d)\n",
			voice, velocity, res.Tier, res.TimingErrorMs, res.Measure)
	}, logger)
	if err != nil {
		log.Fatalf("midi: %v", err)
	}
	defer listener.Close()

	if err := session.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer session.Stop()

	fmt.Printf("Tapping against %.0f BPM %d/4; every lane has a note on every beat. Ctrl+C to quit.\n",
		*bpm, *beats)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

// tapChart places a note for every voice on every beat so any hit has a
// nearby candidate and the printout reflects pure timing accuracy.
func tapChart(beatsPerMeasure, measures uint) []chart.Note {
	voices := []chart.DrumVoice{
		chart.HiHatClose, chart.Snare, chart.BassDrum, chart.HighTom,
		chart.LowTom, chart.Cymbal, chart.FloorTom, chart.HiHatOpen,
		chart.RideCymbal, chart.LeftCymbal,
	}

	var notes []chart.Note
	for m := uint(1); m <= measures; m++ {
		for b := uint(0); b < beatsPerMeasure; b++ {
			off := float64(b) / float64(beatsPerMeasure)
			for _, v := range voices {
				notes = append(notes, chart.Note{Voice: v, Measure: m, Offset: off})
			}
		}
	}
	return notes
}
