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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vozlabs/voz/internal/verrors"
)

// Reader decodes frames off a byte stream, resyncing on garbage the way
// spec.md §4.7 requires: scan for SOH, validate the header, then the
// payload, treating each failure as its own kind rather than aborting the
// stream, mirroring the teacher's handleIncomingFrames read-header-then-
// read-payload structure adapted to a self-resyncing byte stream instead
// of one HTTP chunk per frame.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (rd *Reader) syncToSOH() error {
	for {
		b, err := rd.r.ReadByte()
		if err != nil {
			return verrors.Wrap(verrors.KindIO, err)
		}
		if b == soh {
			return nil
		}
	}
}

// ReadFrame reads and validates the next frame, resyncing past any
// garbage that precedes the next SOH. It never returns a partially
// decoded Frame: on any validation failure it returns a *verrors.Error
// of the matching kind and the caller should call ReadFrame again to
// keep consuming the stream.
func (rd *Reader) ReadFrame() (*Frame, error) {
	if err := rd.syncToSOH(); err != nil {
		return nil, err
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(rd.r, headerBytes); err != nil {
		return nil, verrors.Wrap(verrors.KindIO, fmt.Errorf("serial: read header: %w", err))
	}
	headerChecksum, err := rd.r.ReadByte()
	if err != nil {
		return nil, verrors.Wrap(verrors.KindIO, fmt.Errorf("serial: read header checksum: %w", err))
	}
	if checksum(headerBytes) != headerChecksum {
		return nil, verrors.New(verrors.KindFrameFormat, "serial: header checksum mismatch")
	}

	var h header
	if err := binary.Read(bytes.NewReader(headerBytes), binary.LittleEndian, &h); err != nil {
		return nil, verrors.Wrap(verrors.KindFrameFormat, fmt.Errorf("serial: parse header: %w", err))
	}
	if h.EventIDComp != ^h.EventID {
		return nil, verrors.New(verrors.KindFrameFormat, "serial: event_id complement mismatch")
	}
	if h.PayloadSize > MaxPayloadSize {
		return nil, verrors.New(verrors.KindFrameFormat, "serial: payload_size %d exceeds max %d", h.PayloadSize, MaxPayloadSize)
	}

	payload := make([]byte, h.PayloadSize)
	if h.PayloadSize > 0 {
		if _, err := io.ReadFull(rd.r, payload); err != nil {
			return nil, verrors.Wrap(verrors.KindIO, fmt.Errorf("serial: read payload: %w", err))
		}
	}
	payloadChecksum, err := rd.r.ReadByte()
	if err != nil {
		return nil, verrors.Wrap(verrors.KindIO, fmt.Errorf("serial: read payload checksum: %w", err))
	}
	if checksum(payload) != payloadChecksum {
		return nil, verrors.New(verrors.KindFrameFormat, "serial: payload checksum mismatch")
	}

	return &Frame{EventID: EventID(h.EventID), EventExtra: h.EventExtra, Payload: payload}, nil
}
