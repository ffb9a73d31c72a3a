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
	"fmt"
	"time"

	sio "go.bug.st/serial"
)

// Port parameters fixed by spec.md §6: 576000 8N1, no handshake, 200ms
// read timeout.
const (
	BaudRate   = 576000
	DataBits   = 8
	ReadTimeout = 200 * time.Millisecond
)

// Port is a UART transport a Codec reads Frames from and writes Frames
// to. Its embedded *Codec is what control.Loop's poll loop is written
// against; tests substitute an in-memory io.Pipe-backed *Codec instead of
// opening a real device.
type Port struct {
	*Codec
	port sio.Port
}

// OpenPort opens device at 576000 8N1 with a 200ms read timeout.
func OpenPort(device string) (*Port, error) {
	mode := &sio.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   sio.NoParity,
		StopBits: sio.OneStopBit,
	}
	p, err := sio.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}
	return &Port{Codec: NewCodec(p, p), port: p}, nil
}

// Close closes the underlying device.
func (p *Port) Close() error {
	return p.port.Close()
}
