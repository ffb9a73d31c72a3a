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
	"io"
)

// Codec pairs a Reader with a raw io.Writer, giving callers ReadFrame and
// WriteFrame over the same stream. Split out from Port so tests can drive
// the control plane over an io.Pipe instead of a real device.
type Codec struct {
	*Reader
	w io.Writer
}

// NewCodec builds a Codec reading from r and writing to w.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{Reader: NewReader(r), w: w}
}

// WriteFrame encodes f and writes it whole.
func (c *Codec) WriteFrame(f *Frame) error {
	b, err := f.Encode()
	if err != nil {
		return err
	}
	if _, err := c.w.Write(b); err != nil {
		return fmt.Errorf("serial: write frame: %w", err)
	}
	return nil
}
