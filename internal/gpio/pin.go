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

// Package gpio drives the LED and interrupt lines the serial bridge
// exposes to its host: a single worker thread consuming an
// {On,Off,Blink,Int,Quit} command queue, spec.md §4.6.
package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin is the output-only line contract Worker drives. periphPin wraps a
// real periph.io gpio.PinIO; FakePin stands in for it in tests.
type Pin interface {
	// Out sets the line high (true) or low (false).
	Out(high bool) error
}

type periphPin struct {
	pin gpio.PinIO
}

func (p *periphPin) Out(high bool) error {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	return p.pin.Out(level)
}

// Open initializes the periph.io host drivers (idempotent across
// repeated calls within a process) and resolves name — "gpiochipN:line"
// per spec.md §6 — to a Pin.
func Open(name string) (Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no such pin %q", name)
	}
	return &periphPin{pin: p}, nil
}
