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

// Package output renders detector and preprocessor events in the three
// formats spec.md §6 defines: human, machine and json.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects how Writer renders events.
type Format string

const (
	Human   Format = "human"
	Machine Format = "machine"
	JSON    Format = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Human, Machine, JSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("output: unknown format %q (want human, machine or json)", s)
	}
}

// Writer renders prediction and status events to w in one Format.
type Writer struct {
	w      io.Writer
	format Format
}

// New builds a Writer for format.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

type predictionJSON struct {
	Event    string  `json:"event"`
	Wakeword string  `json:"wakeword"`
	Prob     float32 `json:"prob"`
	Count    int     `json:"cnt"`
}

type statusJSON struct {
	Event string `json:"event"`
	Ready bool   `json:"ready"`
}

// Prediction renders a wake-word match, `P:NAME:SCORE:COUNT` in machine
// mode and `{"event":"prediction",...}` in json mode.
func (w *Writer) Prediction(name string, score float32, count int) error {
	switch w.format {
	case JSON:
		return w.writeJSON(predictionJSON{Event: "prediction", Wakeword: name, Prob: score, Count: count})
	case Machine:
		_, err := fmt.Fprintf(w.w, "P:%s:%g:%d\n", name, score, count)
		return err
	default:
		_, err := fmt.Fprintf(w.w, "detected %q (score %.3f, count %d)\n", name, score, count)
		return err
	}
}

// Status renders a readiness change, `R:0|1` in machine mode and
// `{"event":"status","ready":BOOL}` in json mode.
func (w *Writer) Status(ready bool) error {
	switch w.format {
	case JSON:
		return w.writeJSON(statusJSON{Event: "status", Ready: ready})
	case Machine:
		bit := "0"
		if ready {
			bit = "1"
		}
		_, err := fmt.Fprintf(w.w, "R:%s\n", bit)
		return err
	default:
		state := "not ready"
		if ready {
			state = "ready"
		}
		_, err := fmt.Fprintf(w.w, "detector is %s\n", state)
		return err
	}
}

func (w *Writer) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("output: marshal: %w", err)
	}
	_, err = fmt.Fprintln(w.w, string(b))
	return err
}
