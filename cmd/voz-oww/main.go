/*
 * This file is part of voz.
 * Copyright (C) 2026 Voz Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// voz-oww streams PCM audio through the wake-word detector and reports
// matches on stdout, per spec.md §6.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vozlabs/voz/internal/audio"
	"github.com/vozlabs/voz/internal/capture"
	"github.com/vozlabs/voz/internal/config"
	"github.com/vozlabs/voz/internal/output"
	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/pipeline"
	"github.com/vozlabs/voz/internal/telemetry"
	"github.com/vozlabs/voz/internal/wakeword"
	"github.com/vozlabs/voz/internal/webrtcapm"
)

const version = "voz-oww 0.1.0"

func main() {
	cfg, err := config.ParseDetector(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, config.Usage())
		os.Exit(1)
	}
	if cfg.Version {
		fmt.Println(version)
		return
	}
	if err := run(cfg); err != nil {
		log.Printf("voz-oww: %v", err)
		os.Exit(1)
	}
}

func run(cfg config.DetectorConfig) error {
	melPath, embPath := cfg.BaseModelPaths()

	if cfg.BenchN > 0 {
		return runBench(cfg, melPath, embPath)
	}

	source, closeSource, err := openSource(cfg.Audio)
	if err != nil {
		return fmt.Errorf("open audio source: %w", err)
	}
	defer closeSource()

	var dsp *webrtcapm.Processor
	dspCfg := cfg.DSP.ToWebrtcapmConfig()
	if dspCfg.NeedsProcessor() {
		runner, err := webrtcapm.New(dspCfg)
		if err != nil {
			return fmt.Errorf("init dsp: %w", err)
		}
		dsp = webrtcapm.NewProcessor(runner)
		defer dsp.Close()
	}

	det, err := pipeline.NewDetector(pipeline.DetectorConfig{
		Source:             source,
		DSP:                dsp,
		ChunkTimeMs:        chunkTimeMs,
		Sync:               cfg.Sync,
		MelModelPath:       melPath,
		EmbeddingModelPath: embPath,
		Models:             cfg.Models,
	})
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}
	defer det.Close()

	var pub *telemetry.Publisher
	if cfg.NATS != "" {
		pub, err = telemetry.Connect(cfg.NATS, deviceID())
		if err != nil {
			log.Printf("voz-oww: telemetry disabled: %v", err)
		} else {
			defer pub.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	usrCh := make(chan os.Signal, 1)
	signal.Notify(usrCh, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-sigCh:
				det.Stop()
				return
			case <-usrCh:
				det.Reset()
			}
		}
	}()

	done := make(chan struct{})
	go func() { det.Run(); close(done) }()

	writer := output.New(os.Stdout, cfg.Output)
	drainMatches(det, writer, pub)
	<-done
	return nil
}

// runBench feeds cfg.BenchN silent chunks through a Detector built from
// an in-memory synthetic source, timing the run and discarding output,
// per spec.md §6's --bench=N.
func runBench(cfg config.DetectorConfig, melPath, embPath string) error {
	raw := make([]byte, pcmaudio.ChunkBytes*cfg.BenchN)
	source := capture.NewRawSource(bytes.NewReader(raw))
	defer source.Close()

	det, err := pipeline.NewDetector(pipeline.DetectorConfig{
		Source:             source,
		ChunkTimeMs:        chunkTimeMs,
		MelModelPath:       melPath,
		EmbeddingModelPath: embPath,
		Models:             cfg.Models,
	})
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}
	defer det.Close()

	writer := output.New(io.Discard, cfg.Output)

	start := time.Now()
	done := make(chan struct{})
	go func() { det.Run(); close(done) }()
	drainMatches(det, writer, nil)
	<-done
	elapsed := time.Since(start)

	fmt.Printf("voz-oww bench: %d chunks in %s (%.1f chunks/s)\n",
		cfg.BenchN, elapsed, float64(cfg.BenchN)/elapsed.Seconds())
	return nil
}

// chunkTimeMs is fixed at one chunk's worth of samples in time, matching
// pcmaudio.ChunkSamples at 16 kHz.
const chunkTimeMs = 80

func drainMatches(det *pipeline.Detector, w *output.Writer, pub *telemetry.Publisher) {
	for {
		h := det.Matches.WaitAtLeast(1)
		status := h.Status()
		var matches []wakeword.Match
		if h.Len() > 0 {
			matches = append(matches, h.Get()...)
			h.Shift(len(matches))
		}
		if status.Reset {
			h.ReleaseAndSignal()
		} else {
			h.Release()
		}
		for _, m := range matches {
			if err := w.Prediction(m.Name, m.Score, m.Count); err != nil {
				log.Printf("voz-oww: write prediction: %v", err)
			}
			if pub != nil {
				pub.Publish(telemetry.NewPredictionEvent(deviceID(), m.Name, m.Score, m.Count))
			}
		}
		if status.Cancel {
			return
		}
	}
}

func openSource(mode config.AudioSource) (capture.Source, func(), error) {
	switch mode {
	case config.SourceWav:
		src, err := capture.NewWavSource(os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case config.SourceMic:
		backend := audio.NewPortAudioBackend()
		src, err := capture.NewMicSource(backend, 0)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	default:
		src := capture.NewRawSource(os.Stdin)
		return src, func() { src.Close() }, nil
	}
}

func deviceID() string {
	if id := os.Getenv("VOZ_DEVICE_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		return "voz-oww"
	}
	return host
}
