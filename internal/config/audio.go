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
	"fmt"

	"github.com/vozlabs/voz/internal/webrtcapm"
)

// AudioSource selects where the Detector/Preprocessor read PCM from.
type AudioSource string

const (
	SourceRaw AudioSource = "raw"
	SourceWav AudioSource = "wav"
	// SourceMic selects the PortAudio live-input source [EXPANSION].
	SourceMic AudioSource = "mic"
)

// ParseAudioSource validates a --audio flag value.
func ParseAudioSource(s string) (AudioSource, error) {
	switch AudioSource(s) {
	case SourceRaw, SourceWav, SourceMic:
		return AudioSource(s), nil
	default:
		return "", fmt.Errorf("config: unknown --audio value %q (want raw, wav or mic)", s)
	}
}

// DSPFlags is the --preamp/--noiser/--autogain/--vad flag group shared
// by the Detector and Preprocessor.
type DSPFlags struct {
	Preamp   float64
	Noiser   int
	AutoGain int
	VAD      bool
}

// ToWebrtcapmConfig converts the parsed flags into a webrtcapm.Config,
// clamping out-of-range values per spec.md §4.7.
func (d DSPFlags) ToWebrtcapmConfig() webrtcapm.Config {
	cfg := webrtcapm.Config{
		Preamp:     float32(d.Preamp),
		NoiseLevel: d.Noiser,
		AutoGain:   d.AutoGain,
		VAD:        d.VAD,
	}
	return cfg.Clamp()
}

// ValidateSyncWithSource rejects --audio=mic combined with --sync: the
// live PortAudio source is already paced by its blocking reads and can't
// also be told to sleep between chunks.
func ValidateSyncWithSource(source AudioSource, sync bool) error {
	if source == SourceMic && sync {
		return fmt.Errorf("config: --audio=mic is incompatible with --sync")
	}
	return nil
}
