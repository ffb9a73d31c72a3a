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

// Package wakeword classifies a stream of 96-float embeddings against one
// or more wake-word models, each with its own threshold and patience.
package wakeword

// Config describes one wake-word model as parsed off a MODELSPEC
// argument: path[:name[:threshold[:patience]]].
type Config struct {
	Path      string
	Name      string
	Threshold float32
	Patience  int
}

// Match is one wake-word hit: a model's score exceeded its threshold on
// the current window and its patience counter reached the configured
// patience.
type Match struct {
	Name  string
	Score float32
	Count int
}
