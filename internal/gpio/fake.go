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

package gpio

import "sync"

// FakePin is a Pin that records every level it was set to, in order.
type FakePin struct {
	mu     sync.Mutex
	levels []bool
}

func (f *FakePin) Out(high bool) error {
	f.mu.Lock()
	f.levels = append(f.levels, high)
	f.mu.Unlock()
	return nil
}

// Levels returns a copy of every level set so far, oldest first.
func (f *FakePin) Levels() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.levels...)
}

var _ Pin = (*FakePin)(nil)
