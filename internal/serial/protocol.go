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

// Package serial implements the SOH-framed wire protocol the bridge speaks
// to its host over UART (spec.md §4.7); the control plane built on top of
// it lives in internal/control.
package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vozlabs/voz/internal/verrors"
)

// EventID identifies the payload carried by a Frame.
type EventID uint8

const (
	Nop      EventID = 0x00
	Status   EventID = 0x01
	Mode     EventID = 0x10
	Config   EventID = 0x11
	Audio    EventID = 0x12
	BAudio   EventID = 0x13
	Areset   EventID = 0x14
	Reboot   EventID = 0x15
	WwList   EventID = 0x20
	WwStatus EventID = 0x21
	WwConf   EventID = 0x22
	WwMatch  EventID = 0x23
)

func (e EventID) String() string {
	switch e {
	case Nop:
		return "Nop"
	case Status:
		return "Status"
	case Mode:
		return "Mode"
	case Config:
		return "Config"
	case Audio:
		return "Audio"
	case BAudio:
		return "BAudio"
	case Areset:
		return "Areset"
	case Reboot:
		return "Reboot"
	case WwList:
		return "WwList"
	case WwStatus:
		return "WwStatus"
	case WwConf:
		return "WwConf"
	case WwMatch:
		return "WwMatch"
	default:
		return fmt.Sprintf("EventID(0x%02x)", uint8(e))
	}
}

const (
	soh = 0x01

	// HeaderSize is the fixed 5-byte header: event_id, ~event_id,
	// event_extra, payload_size(u16).
	HeaderSize = 5

	// MaxPayloadSize is the largest payload_size a reader accepts.
	MaxPayloadSize = 2048
)

// header is the wire layout of the 5-byte frame header. encoding/binary
// serializes struct fields in order regardless of Go's own padding rules,
// so this doubles as both the in-memory and on-wire representation.
type header struct {
	EventID     uint8
	EventIDComp uint8
	EventExtra  uint8
	PayloadSize uint16
}

// Frame is one decoded protocol message.
type Frame struct {
	EventID    EventID
	EventExtra uint8
	Payload    []byte
}

// NewFrame builds a Frame with no event_extra byte set.
func NewFrame(id EventID, payload []byte) *Frame {
	return &Frame{EventID: id, Payload: payload}
}

func checksum(b []byte) uint8 {
	var sum uint8
	for _, x := range b {
		sum += x
	}
	return sum
}

// Encode serializes f to the wire format described in spec.md §4.7.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, verrors.New(verrors.KindFrameFormat, "serial: payload too large: %d bytes (max %d)", len(f.Payload), MaxPayloadSize)
	}

	h := header{
		EventID:     uint8(f.EventID),
		EventIDComp: ^uint8(f.EventID),
		EventExtra:  f.EventExtra,
		PayloadSize: uint16(len(f.Payload)),
	}

	headerBuf := new(bytes.Buffer)
	if err := binary.Write(headerBuf, binary.LittleEndian, h); err != nil {
		return nil, verrors.Wrap(verrors.KindFrameFormat, fmt.Errorf("serial: write header: %w", err))
	}

	out := new(bytes.Buffer)
	out.WriteByte(soh)
	out.Write(headerBuf.Bytes())
	out.WriteByte(checksum(headerBuf.Bytes()))
	out.Write(f.Payload)
	out.WriteByte(checksum(f.Payload))
	return out.Bytes(), nil
}

// Size returns the total encoded size of f.
func (f *Frame) Size() int {
	return 1 + HeaderSize + 1 + len(f.Payload) + 1
}
