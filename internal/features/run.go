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

package features

import (
	"log"

	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
)

// Run drives the process_input / to_mels / to_features loop until the
// input buffer is cancelled or the error budget is exhausted. It is meant
// to be the body of the dedicated features goroutine spec.md §5 requires.
func (p *Pipeline) Run() {
	for {
		hasFrame, status := p.processInput()

		if hasFrame {
			if err := p.toMels(); err != nil {
				p.recordError("mel model", err)
			} else if err := p.toFeatures(); err != nil {
				p.recordError("embedding model", err)
			}
			p.stats.FramesProcessed++
		}

		if p.errCount >= MaxErrorsAllowed {
			log.Printf("features: aborting after %d accumulated errors", p.errCount)
			p.output.Cancel()
			return
		}

		if status.Cancel {
			p.output.Cancel()
			return
		}
		if status.Reset {
			p.warmInput()
			p.warmMels()
			p.output.Reset()
			p.stats.Resets++
		}
	}
}

func (p *Pipeline) recordError(stage string, err error) {
	p.errCount++
	p.stats.Errors++
	log.Printf("features: %s error (%d/%d): %v", stage, p.errCount, MaxErrorsAllowed, err)
}

// processInput waits for one full overlap+frame window, copy-converts it
// to floats, then shifts the input buffer forward by one frame, leaving
// the overlap as the next iteration's leading context. It returns whether
// a full frame was staged and the input buffer's status at the time of
// the wait.
func (p *Pipeline) processInput() (bool, rollbuffer.Status) {
	required := pcmaudio.OverlapSamples + pcmaudio.FrameSamples

	h := p.input.WaitAtLeast(required)
	status := h.Status()
	hasFrame := h.Len() >= required
	if hasFrame {
		pcmaudio.Int16ToFloat32(h.Get()[:required], p.scratchInput)
		h.Shift(pcmaudio.FrameSamples)
	}

	if status.Reset {
		h.Reset()
		h.ReleaseAndSignal()
	} else {
		h.Release()
	}
	return hasFrame, status
}

// toMels invokes the mel model on the staged frame, rescales its output,
// and appends the resulting mel vectors to the mel buffer.
func (p *Pipeline) toMels() error {
	raw := float32ToBytes(p.scratchInput)
	out, err := p.melModel.RunFloat32(raw)
	if err != nil {
		return err
	}

	rows := len(out) / MelBins
	vecs := make([]MelVector, rows)
	for i := 0; i < rows; i++ {
		var v MelVector
		for j := 0; j < MelBins; j++ {
			v[j] = rescale(out[i*MelBins+j])
		}
		vecs[i] = v
	}
	p.melBuf.Append(vecs)
	return nil
}

// toFeatures drains as many MelRequiredRows-wide embedding windows as the
// mel buffer currently holds, appending one embedding to the output
// buffer per window and signalling the consumer once at the end.
func (p *Pipeline) toFeatures() error {
	var produced []Embedding
	for p.melBuf.Len() >= MelRequiredRows {
		raw := melRowsToBytes(p.melBuf.Get()[:MelRequiredRows])
		out, err := p.embModel.RunFloat32(raw)
		if err != nil {
			return err
		}
		p.melBuf.Shift(p.melPerChunk)

		var emb Embedding
		copy(emb[:], out)
		produced = append(produced, emb)
	}
	if len(produced) > 0 {
		p.output.Append(produced)
		p.stats.EmbeddingsProduced += len(produced)
	}
	return nil
}
