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

package config

import (
	"flag"
	"fmt"

	"github.com/vozlabs/voz/internal/output"
)

// PreprocessorConfig holds the parsed and validated flags for voz-pre.
type PreprocessorConfig struct {
	Audio   AudioSource
	Output  output.Format
	DSP     DSPFlags
	Timming int // spelled per spec.md's --timming flag
}

// ParsePreprocessor parses argv into a PreprocessorConfig.
func ParsePreprocessor(argv []string) (PreprocessorConfig, error) {
	fs := flag.NewFlagSet("voz-pre", flag.ContinueOnError)
	audioFlag := fs.String("audio", string(SourceRaw), "audio source: raw|wav|mic")
	outputFlag := fs.String("output", string(output.Machine), "output format: human|machine|json")
	preamp := fs.Float64("preamp", 1.0, "input gain multiplier")
	noiser := fs.Int("noiser", 0, "noise suppression level 0-4")
	autogain := fs.Int("autogain", 0, "automatic gain control level 0-31")
	vad := fs.Bool("vad", false, "prefix each output chunk with a packed VAD byte")
	timming := fs.Int("timming", 0, "non-zero paces output to real time (sleeps between chunks)")

	if err := fs.Parse(argv); err != nil {
		return PreprocessorConfig{}, err
	}

	audio, err := ParseAudioSource(*audioFlag)
	if err != nil {
		return PreprocessorConfig{}, err
	}
	if audio == SourceMic && *timming != 0 {
		return PreprocessorConfig{}, fmt.Errorf("config: --audio=mic is incompatible with --timming")
	}
	fmtOut, err := output.ParseFormat(*outputFlag)
	if err != nil {
		return PreprocessorConfig{}, err
	}

	return PreprocessorConfig{
		Audio:   audio,
		Output:  fmtOut,
		DSP:     DSPFlags{Preamp: *preamp, Noiser: *noiser, AutoGain: *autogain, VAD: *vad},
		Timming: *timming,
	}, nil
}
