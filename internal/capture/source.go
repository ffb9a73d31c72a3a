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

// Package capture runs the poll-driven capture-and-DSP thread: it reads
// PCM bytes from a Source in chunk_time_ms-timed slices, runs them through
// the optional webrtcapm.Processor, and appends whole chunks to a shared
// output buffer.
package capture

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/vozlabs/voz/internal/pcmaudio"
)

// ErrTimeout is returned by ReadChunk when no bytes became available
// before the deadline, distinct from EOF.
var ErrTimeout = errors.New("capture: read timeout")

// Source is the poll-driven input abstraction: raw, wav, and mic sources
// all reduce to "read up to len(buf) bytes within timeout". A (0, nil)
// return means EOF, mirroring a 0-byte read on the underlying descriptor.
type Source interface {
	ReadChunk(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// pumpBufSize bounds one background read; smaller than this and a source
// that never fills it just returns a short read, which is fine — capture
// accumulates across ReadChunk calls until a whole chunk is assembled.
const pumpBufSize = 4096

// rawSource treats every byte read from r as PCM. Go gives no portable way
// to poll an arbitrary io.Reader with a deadline (only os.File and
// net.Conn support SetReadDeadline), so rawSource runs r.Read on a
// dedicated goroutine and lets ReadChunk race the result against a timer —
// the same "poll with a timeout" contract spec.md §4.5 asks of a real
// descriptor, generalized to any Reader.
type rawSource struct {
	r       io.Reader
	results chan ioResult
	leftover []byte
}

type ioResult struct {
	data []byte
	err  error
}

// NewRawSource wraps r as a Source whose bytes are PCM verbatim.
func NewRawSource(r io.Reader) Source {
	s := &rawSource{r: r, results: make(chan ioResult, 1)}
	go s.pump()
	return s
}

func (s *rawSource) pump() {
	buf := make([]byte, pumpBufSize)
	for {
		n, err := s.r.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		s.results <- ioResult{data: data, err: err}
		if err != nil {
			return
		}
	}
}

func (s *rawSource) ReadChunk(dst []byte, timeout time.Duration) (int, error) {
	if len(s.leftover) > 0 {
		n := copy(dst, s.leftover)
		s.leftover = s.leftover[n:]
		return n, nil
	}
	select {
	case res := <-s.results:
		if res.err != nil && res.err != io.EOF {
			return 0, res.err
		}
		n := copy(dst, res.data)
		if n < len(res.data) {
			s.leftover = res.data[n:]
		}
		return n, nil
	case <-time.After(timeout):
		return 0, ErrTimeout
	}
}

func (s *rawSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// wavSource validates a 44-byte WAV header up front; if the header is
// well-formed the remaining stream is PCM. If it doesn't validate, the
// header bytes it already consumed are replayed as the start of a raw PCM
// stream instead of aborting — spec.md §4.5's "otherwise proceed as raw".
type wavSource struct {
	inner   Source
	prefix  []byte // unconsumed bytes replayed before inner reads resume
}

// NewWavSource reads and validates r's WAV header, falling back to
// treating the whole stream (header included) as raw PCM when it doesn't
// validate.
func NewWavSource(r io.Reader) (Source, error) {
	header := make([]byte, pcmaudio.WavHeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	header = header[:n]

	inner := NewRawSource(r)
	if len(header) == pcmaudio.WavHeaderSize {
		if _, verr := pcmaudio.ReadWavHeader(bytes.NewReader(header)); verr == nil {
			return inner, nil
		}
	}
	return &wavSource{inner: inner, prefix: header}, nil
}

func (s *wavSource) ReadChunk(buf []byte, timeout time.Duration) (int, error) {
	if len(s.prefix) > 0 {
		n := copy(buf, s.prefix)
		s.prefix = s.prefix[n:]
		return n, nil
	}
	return s.inner.ReadChunk(buf, timeout)
}

func (s *wavSource) Close() error { return s.inner.Close() }
