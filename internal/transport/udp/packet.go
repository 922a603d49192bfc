// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/x448/float16"

	"vocalfx/internal/stream"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Magic             | [2]byte        | 2            | "VF"                    |
| Version           | uint8          | 1            | PacketVersion           |
| Flags             | uint8          | 1            | bit 0: correction held  |
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Frame             | uint64         | 8            | Frame counter           |
| Detected          | float32        | 4            | Hz                      |
| Target            | float32        | 4            | Hz                      |
| Ratio             | float32        | 4            | Applied pitch ratio     |
| Level             | float32        | 4            | Input RMS               |
| Key               | uint8          | 1            | 0-23                    |
| Note              | uint8          | 1            | 0-9                     |
| Octave            | int8           | 1            | Octave setting          |
| Band Count        | uint8          | 1            | B                       |
| Bands             | []float16      | B * 2        | Normalized band energy  |
| Magnitude Count   | uint16         | 2            | M (0 when disabled)     |
| Magnitudes        | []float16      | M * 2        | Spectrum magnitudes     |
+-----------------------------------------------------------------------------+

Half precision keeps a 1024-point spectrum inside a single datagram.
*/

// PacketVersion is the current layout version.
const PacketVersion = 1

const headerSize = 2 + 1 + 1 + 4 + 8 + 8 + 4*4 + 4

const flagSkipped = 1 << 0

var (
	errShortPacket = errors.New("udp: short packet")
	errBadMagic    = errors.New("udp: bad magic or version")
)

// Packet is a decoded datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Frame      uint64
	Skipped    bool
	Detected   float32
	Target     float32
	Ratio      float32
	Level      float32
	Key        int
	Note       int
	Octave     int
	Bands      []float32
	Magnitudes []float32
}

// AppendPacket encodes t after dst and returns the extended slice.
// Magnitudes are written only when t carries them.
func AppendPacket(dst []byte, seq uint32, ts int64, t *stream.Telemetry) []byte {
	var flags byte
	if t.Skipped {
		flags |= flagSkipped
	}
	dst = append(dst, 'V', 'F', PacketVersion, flags)
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts))
	dst = binary.BigEndian.AppendUint64(dst, t.Frame)
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(t.Detected)))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(t.Target)))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(t.Ratio)))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(t.Level)))
	dst = append(dst,
		uint8(t.Settings.Key), uint8(t.Settings.Note), uint8(int8(t.Settings.Octave)),
		uint8(min(len(t.Bands), math.MaxUint8)))
	for _, b := range t.Bands[:min(len(t.Bands), math.MaxUint8)] {
		dst = binary.BigEndian.AppendUint16(dst, float16.Fromfloat32(float32(b)).Bits())
	}
	mags := t.Magnitudes[:min(len(t.Magnitudes), math.MaxUint16)]
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(mags)))
	for _, m := range mags {
		dst = binary.BigEndian.AppendUint16(dst, float16.Fromfloat32(float32(m)).Bits())
	}
	return dst
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize+2 {
		return Packet{}, errShortPacket
	}
	if b[0] != 'V' || b[1] != 'F' || b[2] != PacketVersion {
		return Packet{}, errBadMagic
	}
	be := binary.BigEndian
	p := Packet{
		Skipped:   b[3]&flagSkipped != 0,
		Sequence:  be.Uint32(b[4:]),
		Timestamp: int64(be.Uint64(b[8:])),
		Frame:     be.Uint64(b[16:]),
		Detected:  math.Float32frombits(be.Uint32(b[24:])),
		Target:    math.Float32frombits(be.Uint32(b[28:])),
		Ratio:     math.Float32frombits(be.Uint32(b[32:])),
		Level:     math.Float32frombits(be.Uint32(b[36:])),
		Key:       int(b[40]),
		Note:      int(b[41]),
		Octave:    int(int8(b[42])),
	}
	nb := int(b[43])
	rest := b[headerSize:]

	var err error
	if p.Bands, rest, err = halfs(rest, nb); err != nil {
		return Packet{}, err
	}
	if len(rest) < 2 {
		return Packet{}, errShortPacket
	}
	nm := int(be.Uint16(rest))
	if p.Magnitudes, _, err = halfs(rest[2:], nm); err != nil {
		return Packet{}, err
	}
	return p, nil
}

func halfs(b []byte, n int) ([]float32, []byte, error) {
	if len(b) < 2*n {
		return nil, nil, errShortPacket
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float16.Frombits(binary.BigEndian.Uint16(b[2*i:])).Float32()
	}
	return out, b[2*n:], nil
}
