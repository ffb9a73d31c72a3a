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

// Package control implements the serial bridge's control plane: the
// {Idle,WakeWord,Preprocessor} state machine, its child process
// supervisor, the wake-word catalog and the poll loop that drives them
// (spec.md §4.7).
package control

// Mode is one of the bridge's three states. The zero value is Idle, the
// state machine's initial state.
type Mode uint8

const (
	Idle Mode = iota
	WakeWord
	Preprocessor
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case WakeWord:
		return "wakeword"
	case Preprocessor:
		return "preprocessor"
	default:
		return "unknown"
	}
}
