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

// voz-pre reads PCM audio, applies the same DSP chain the detector uses
// and writes the cleaned audio back out, per spec.md §4.5/§6.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vozlabs/voz/internal/audio"
	"github.com/vozlabs/voz/internal/capture"
	"github.com/vozlabs/voz/internal/config"
	"github.com/vozlabs/voz/internal/output"
	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/pipeline"
	"github.com/vozlabs/voz/internal/webrtcapm"
)

func main() {
	cfg, err := config.ParsePreprocessor(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		log.Printf("voz-pre: %v", err)
		os.Exit(1)
	}
}

const chunkTimeMs = 80

func run(cfg config.PreprocessorConfig) error {
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

	pre := pipeline.NewPreprocessor(pipeline.PreprocessorConfig{
		Source:      source,
		DSP:         dsp,
		ChunkTimeMs: chunkTimeMs,
		Sync:        cfg.Timming != 0,
		VAD:         cfg.DSP.VAD,
	})
	defer pre.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	usrCh := make(chan os.Signal, 1)
	signal.Notify(usrCh, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-sigCh:
				pre.Stop()
				return
			case <-usrCh:
				pre.Reset()
			}
		}
	}()

	writer := output.New(os.Stderr, cfg.Output)

	done := make(chan struct{})
	go func() { pre.Run(); close(done) }()

	drainChunks(pre, writer)
	<-done
	return nil
}

// drainChunks writes cleaned PCM chunks (and, when requested, a leading
// VAD byte per chunk) to stdout as they become available, mirroring
// voz-oww's drainMatches loop but over raw audio instead of matches.
func drainChunks(pre *pipeline.Preprocessor, statusW *output.Writer) {
	ready := false
	for {
		h := pre.Output.WaitAtLeast(pcmaudio.ChunkSamples)
		status := h.Status()
		var chunk []int16
		if h.Len() >= pcmaudio.ChunkSamples {
			chunk = append(chunk, h.Get()[:pcmaudio.ChunkSamples]...)
			h.Shift(pcmaudio.ChunkSamples)
		}
		if status.Reset {
			h.ReleaseAndSignal()
		} else {
			h.Release()
		}

		if !ready && len(chunk) > 0 {
			ready = true
			if err := statusW.Status(true); err != nil {
				log.Printf("voz-pre: write status: %v", err)
			}
		}

		if len(chunk) > 0 {
			if pre.VAD != nil {
				vad := <-pre.VAD
				os.Stdout.Write([]byte{vad})
			}
			if _, err := os.Stdout.Write(pcmaudio.Int16ToBytes(chunk)); err != nil {
				log.Printf("voz-pre: write audio: %v", err)
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
