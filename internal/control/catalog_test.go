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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeModel(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestLoadCatalogEnablesFirstEntryOnly(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "alpha.tflite")
	writeFakeModel(t, dir, "beta.tflite")
	writeFakeModel(t, dir, "not_a_model.txt")

	c, err := LoadCatalog(dir)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	entries := c.Entries()
	assert.Equal(t, "alpha", entries[0].Name)
	assert.True(t, entries[0].Enabled)
	assert.Equal(t, "beta", entries[1].Name)
	assert.False(t, entries[1].Enabled)
}

func TestCatalogEnabledMaskTracksFlags(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "a.tflite")
	writeFakeModel(t, dir, "b.tflite")
	writeFakeModel(t, dir, "c.tflite")
	c, err := LoadCatalog(dir)
	require.NoError(t, err)

	assert.Equal(t, uint16(0b001), c.EnabledMask())

	require.NoError(t, c.SetEnabled(2, true))
	assert.Equal(t, uint16(0b101), c.EnabledMask())

	c.ClearAll()
	assert.Equal(t, uint16(0), c.EnabledMask())
}

func TestCatalogConfigureRejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "a.tflite")
	c, err := LoadCatalog(dir)
	require.NoError(t, err)

	err = c.Configure(5, true, 0.5, 1)
	require.Error(t, err)
}

func TestCatalogChildArgsOnlyEnabledEntries(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "a.tflite")
	writeFakeModel(t, dir, "b.tflite")
	c, err := LoadCatalog(dir)
	require.NoError(t, err)
	require.NoError(t, c.Configure(1, true, 0.7, 3))

	args := c.ChildArgs()
	require.Len(t, args, 2)
	assert.Contains(t, args[0], "a.tflite:0:0.5:1")
	assert.Contains(t, args[1], "b.tflite:1:0.7:3")
}
