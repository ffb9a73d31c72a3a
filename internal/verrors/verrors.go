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

// Package verrors gives the serial control plane a small, shared set of
// error kinds so a Status event can carry the cause of a failure without
// every package inventing its own taxonomy.
package verrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way a Status event on the wire reports it.
type Kind uint8

const (
	KindNone Kind = iota
	KindIO
	KindTensorAlloc
	KindTensorRuntime
	KindFrameFormat
	KindConfig
	KindChildIO
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindIO:
		return "io_error"
	case KindTensorAlloc:
		return "tensor_alloc_error"
	case KindTensorRuntime:
		return "tensor_runtime_error"
	case KindFrameFormat:
		return "frame_format_error"
	case KindConfig:
		return "config_error"
	case KindChildIO:
		return "child_io_error"
	case KindInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with an underlying cause, matching the teacher's
// fmt.Errorf("...: %w", err) wrapping style while still letting the
// control plane recover the Kind with errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, else KindInternal — an unclassified failure is still a failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
