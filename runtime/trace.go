// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package runtime

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
)

// TraceMode selects a TraceController's current capture state; probe
// steps record only while capturing.
type TraceMode int

const (
	TraceOff TraceMode = iota
	TraceCapturing
)

// TraceController gates DebugProbe capture for an Executor. It is
// caller-owned and may be flipped between frames (e.g. an editor
// toggling a "record" button); the executor only ever reads the mode.
type TraceController struct {
	mu   sync.Mutex
	mode TraceMode
}

// NewTraceController returns a controller starting in TraceOff.
func NewTraceController() *TraceController {
	return &TraceController{}
}

// Mode reports the controller's current mode.
func (c *TraceController) Mode() TraceMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode changes the controller's mode.
func (c *TraceController) SetMode(m TraceMode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

// TraceRecord is one DebugProbe capture: the probed slot's lanes at a
// given frame, tagged by probe id and encoding mode.
type TraceRecord struct {
	ProbeID int
	Mode    ir.DebugProbeMode
	Lanes   []float64
}

func probeLaneCount(m ir.DebugProbeMode) int {
	switch m {
	case ir.ProbeVec2:
		return 2
	case ir.ProbeColor:
		return 4
	case ir.ProbeFieldStats:
		return 4 // count, min, max, mean
	default:
		return 1
	}
}

func encodeTraceRecord(r TraceRecord) []byte {
	buf := make([]byte, 4+1+4+8*len(r.Lanes))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.ProbeID))
	buf[4] = byte(r.Mode)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(r.Lanes)))
	off := 9
	for _, v := range r.Lanes {
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
		off += 8
	}
	return buf
}

func decodeTraceRecord(buf []byte) (TraceRecord, error) {
	if len(buf) < 9 {
		return TraceRecord{}, fmt.Errorf("runtime: trace record too short (%d bytes)", len(buf))
	}
	id := int(binary.LittleEndian.Uint32(buf[0:4]))
	mode := ir.DebugProbeMode(buf[4])
	n := int(binary.LittleEndian.Uint32(buf[5:9]))
	if len(buf) < 9+8*n {
		return TraceRecord{}, fmt.Errorf("runtime: trace record truncated")
	}
	lanes := make([]float64, n)
	off := 9
	for i := range lanes {
		lanes[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
	}
	return TraceRecord{ProbeID: id, Mode: mode, Lanes: lanes}, nil
}

// TraceRingBuffer is a fixed-capacity, overwrite-oldest store of
// zstd-compressed DebugProbe records.
type TraceRingBuffer struct {
	mu       sync.Mutex
	capacity int
	buf      [][]byte
	next     int
	count    int
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewTraceRingBuffer returns a ring buffer holding up to capacity
// records.
func NewTraceRingBuffer(capacity int) (*TraceRingBuffer, error) {
	if capacity <= 0 {
		capacity = 1
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("runtime: trace ring buffer: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("runtime: trace ring buffer: %w", err)
	}
	return &TraceRingBuffer{
		capacity: capacity,
		buf:      make([][]byte, capacity),
		enc:      enc,
		dec:      dec,
	}, nil
}

// Append compresses and stores rec, overwriting the oldest record once
// the buffer is full.
func (t *TraceRingBuffer) Append(rec TraceRecord) {
	raw := encodeTraceRecord(rec)
	compressed := t.enc.EncodeAll(raw, nil)
	t.mu.Lock()
	t.buf[t.next] = compressed
	t.next = (t.next + 1) % t.capacity
	if t.count < t.capacity {
		t.count++
	}
	t.mu.Unlock()
}

// Records decompresses and returns every currently retained record,
// oldest first.
func (t *TraceRingBuffer) Records() ([]TraceRecord, error) {
	t.mu.Lock()
	count := t.count
	start := (t.next - count + t.capacity) % t.capacity
	compressed := make([][]byte, count)
	for i := 0; i < count; i++ {
		compressed[i] = t.buf[(start+i)%t.capacity]
	}
	t.mu.Unlock()

	out := make([]TraceRecord, 0, count)
	for _, c := range compressed {
		raw, err := t.dec.DecodeAll(c, nil)
		if err != nil {
			return nil, fmt.Errorf("runtime: trace ring buffer decode: %w", err)
		}
		rec, err := decodeTraceRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len reports how many records are currently retained.
func (t *TraceRingBuffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
