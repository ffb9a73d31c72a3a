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

package control

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vozlabs/voz/internal/verrors"
)

// MaxCatalogEntries is the fixed catalog size spec.md's `0..<16` allows.
const MaxCatalogEntries = 16

const defaultThreshold = 0.5
const defaultPatience = 1

// CatalogEntry is one wake-word model slot.
type CatalogEntry struct {
	Path      string
	Name      string
	Enabled   bool
	Threshold float32
	Patience  uint8
}

// Catalog is the fixed-size table of wake-word model slots the WakeWord
// mode child is configured from.
type Catalog struct {
	entries [MaxCatalogEntries]CatalogEntry
	count   int
}

// LoadCatalog scans dir for *.tflite files, allocating entries 0..<16 in
// name order and enabling entry 0 by default, per spec.md §4.7.
func LoadCatalog(dir string) (*Catalog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tflite"))
	if err != nil {
		return nil, verrors.Wrap(verrors.KindConfig, fmt.Errorf("control: scan %s: %w", dir, err))
	}
	sort.Strings(matches)
	if len(matches) > MaxCatalogEntries {
		matches = matches[:MaxCatalogEntries]
	}

	c := &Catalog{}
	for i, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".tflite")
		if len(name) > 32 {
			name = name[:32]
		}
		c.entries[i] = CatalogEntry{
			Path:      path,
			Name:      name,
			Enabled:   i == 0,
			Threshold: defaultThreshold,
			Patience:  defaultPatience,
		}
	}
	c.count = len(matches)
	return c, nil
}

// Len returns the number of populated entries.
func (c *Catalog) Len() int { return c.count }

// Entry returns entry index, or an error if index is out of range.
func (c *Catalog) Entry(index int) (CatalogEntry, error) {
	if index < 0 || index >= c.count {
		return CatalogEntry{}, verrors.New(verrors.KindConfig, "control: catalog index %d out of range [0,%d)", index, c.count)
	}
	return c.entries[index], nil
}

// Entries returns every populated entry, in index order.
func (c *Catalog) Entries() []CatalogEntry {
	return append([]CatalogEntry(nil), c.entries[:c.count]...)
}

// SetEnabled updates index's enabled flag.
func (c *Catalog) SetEnabled(index int, enabled bool) error {
	if index < 0 || index >= c.count {
		return verrors.New(verrors.KindConfig, "control: catalog index %d out of range [0,%d)", index, c.count)
	}
	c.entries[index].Enabled = enabled
	return nil
}

// ClearAll zeroes every entry's enabled flag, per WwList(clear=true).
func (c *Catalog) ClearAll() {
	for i := range c.entries[:c.count] {
		c.entries[i].Enabled = false
	}
}

// Configure applies a WwConf update to the referenced entry.
func (c *Catalog) Configure(index int, enabled bool, threshold float32, patience uint8) error {
	if index < 0 || index >= c.count {
		return verrors.New(verrors.KindConfig, "control: catalog index %d out of range [0,%d)", index, c.count)
	}
	c.entries[index].Enabled = enabled
	c.entries[index].Threshold = threshold
	c.entries[index].Patience = patience
	return nil
}

// EnabledMask recomputes the bitmask of enabled entries, low bit is
// entry 0, per "recomputed whenever an entry's enabled flag changes".
func (c *Catalog) EnabledMask() uint16 {
	var mask uint16
	for i, e := range c.entries[:c.count] {
		if e.Enabled {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// ChildArgs builds the `<path>:<index>:<threshold>:<patience>` argument
// list for every enabled entry, in index order, matching the MODELSPEC
// grammar the detector CLI accepts.
func (c *Catalog) ChildArgs() []string {
	var args []string
	for i, e := range c.entries[:c.count] {
		if !e.Enabled {
			continue
		}
		args = append(args, fmt.Sprintf("%s:%d:%g:%d", e.Path, i, e.Threshold, e.Patience))
	}
	return args
}
