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

package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vozlabs/voz/internal/verrors"
)

// StatusPayload is the fixed 13-byte Status event body. spec.md fixes only
// the total size; the field layout below covers what the control state
// machine and watchdog (§4.7) actually need to report: current mode,
// readiness, the last error kind, uptime, rough throughput and which
// catalog entries are currently enabled. FramesProcessed is truncated to
// 16 bits to make room for WakewordMask within the fixed budget — the
// watchdog log line still reports the untruncated internal counter.
type StatusPayload struct {
	Mode            uint8
	Ready           uint8
	ErrorKind       uint8
	UptimeSec       uint32
	FramesProcessed uint16
	MatchCount      uint16
	WakewordMask    uint16
}

// AudioConfPayload is the 7-byte Config event body.
type AudioConfPayload struct {
	Preamp   float32
	Noiser   uint8
	AutoGain uint8
	VAD      uint8
}

// WwConfPayload is the 7-byte per-entry wake-word configuration.
type WwConfPayload struct {
	Index     uint8
	Enabled   uint8
	Threshold float32
	Patience  uint8
}

// WwStatusPayload is the 40-byte catalog entry echo: a 33-byte
// null-padded display name followed by a WwConfPayload.
type WwStatusPayload struct {
	Name [33]byte
	Conf WwConfPayload
}

// WwMatchPayload is the 6-byte prediction event body.
type WwMatchPayload struct {
	Index uint8
	Score float32
	Count uint8
}

func encodePayload(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, verrors.Wrap(verrors.KindFrameFormat, fmt.Errorf("serial: encode payload: %w", err))
	}
	return buf.Bytes(), nil
}

func decodePayload(b []byte, v any) error {
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return verrors.Wrap(verrors.KindFrameFormat, fmt.Errorf("serial: decode payload: %w", err))
	}
	return nil
}

// EncodeStatus serializes a StatusPayload.
func EncodeStatus(p StatusPayload) ([]byte, error) { return encodePayload(p) }

// DecodeStatus parses a StatusPayload.
func DecodeStatus(b []byte) (StatusPayload, error) {
	var p StatusPayload
	err := decodePayload(b, &p)
	return p, err
}

// EncodeAudioConf serializes an AudioConfPayload.
func EncodeAudioConf(p AudioConfPayload) ([]byte, error) { return encodePayload(p) }

// DecodeAudioConf parses an AudioConfPayload.
func DecodeAudioConf(b []byte) (AudioConfPayload, error) {
	var p AudioConfPayload
	err := decodePayload(b, &p)
	return p, err
}

// EncodeWwConf serializes a WwConfPayload.
func EncodeWwConf(p WwConfPayload) ([]byte, error) { return encodePayload(p) }

// DecodeWwConf parses a WwConfPayload.
func DecodeWwConf(b []byte) (WwConfPayload, error) {
	var p WwConfPayload
	err := decodePayload(b, &p)
	return p, err
}

// EncodeWwStatus serializes a WwStatusPayload, truncating name to 32
// bytes plus the trailing NUL per spec.md's "truncated to 32 bytes".
func EncodeWwStatus(name string, conf WwConfPayload) ([]byte, error) {
	var p WwStatusPayload
	n := copy(p.Name[:32], name)
	p.Name[n] = 0
	p.Conf = conf
	return encodePayload(p)
}

// DecodeWwStatus parses a WwStatusPayload, returning the name with its
// NUL padding stripped.
func DecodeWwStatus(b []byte) (string, WwConfPayload, error) {
	var p WwStatusPayload
	if err := decodePayload(b, &p); err != nil {
		return "", WwConfPayload{}, err
	}
	end := bytes.IndexByte(p.Name[:], 0)
	if end < 0 {
		end = len(p.Name)
	}
	return string(p.Name[:end]), p.Conf, nil
}

// EncodeWwMatch serializes a WwMatchPayload.
func EncodeWwMatch(p WwMatchPayload) ([]byte, error) { return encodePayload(p) }

// DecodeWwMatch parses a WwMatchPayload.
func DecodeWwMatch(b []byte) (WwMatchPayload, error) {
	var p WwMatchPayload
	err := decodePayload(b, &p)
	return p, err
}
