package vm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// SegmentID names one of the fixed logical regions the byte buffer is
// carved into at init time. Order here fixes the base-address layout
// described in spec section 3.2.
type SegmentID int

const (
	SegStack SegmentID = iota
	SegRStack
	SegString
	SegCode
	SegExtra
	numSegments
)

func (s SegmentID) String() string {
	switch s {
	case SegStack:
		return "STACK"
	case SegRStack:
		return "RSTACK"
	case SegString:
		return "STRING"
	case SegCode:
		return "CODE"
	case SegExtra:
		return "EXTRA"
	default:
		return "UNKNOWN"
	}
}

// Segment sizes, in bytes. SegExtra soaks up whatever remains of the
// fixed total so the table always sums to MemorySize.
const (
	MemorySize    uint32 = 65536
	stackSegSize  uint32 = 256
	rstackSegSize uint32 = 256
	stringSegSize uint32 = 2048
	codeSegSize   uint32 = 8192
)

// Memory owns the single contiguous byte buffer backing every segment
// and resolves segment-relative offsets to linear addresses.
type Memory struct {
	buf  [MemorySize]byte
	base [numSegments]uint32
	size [numSegments]uint32
}

// NewMemory lays out segments in the fixed order of spec 3.2 and
// returns a freshly zeroed buffer.
func NewMemory() *Memory {
	m := &Memory{}
	sizes := [numSegments]uint32{
		SegStack:  stackSegSize,
		SegRStack: rstackSegSize,
		SegString: stringSegSize,
		SegCode:   codeSegSize,
	}
	sizes[SegExtra] = MemorySize - (stackSegSize + rstackSegSize + stringSegSize + codeSegSize)

	var base uint32
	for seg := SegmentID(0); seg < numSegments; seg++ {
		m.base[seg] = base
		m.size[seg] = sizes[seg]
		base += sizes[seg]
	}
	return m
}

// SegmentSize returns the configured capacity of seg, in bytes.
func (m *Memory) SegmentSize(seg SegmentID) uint32 {
	return m.size[seg]
}

// resolve validates that [off, off+width) lies within seg and returns
// the linear address of off. No partial reads or writes are ever
// issued before this check succeeds.
func (m *Memory) resolve(seg SegmentID, off, width uint32) (uint32, error) {
	if seg < 0 || seg >= numSegments {
		return 0, newError(KindRange, "unknown segment %d", seg)
	}
	if off > m.size[seg] || width > m.size[seg]-off {
		return 0, newError(KindRange, "access [%d,%d) out of bounds for segment %s (size %d)", off, off+width, seg, m.size[seg])
	}
	return m.base[seg] + off, nil
}

func (m *Memory) Read8(seg SegmentID, off uint32) (byte, error) {
	addr, err := m.resolve(seg, off, 1)
	if err != nil {
		return 0, err
	}
	return m.buf[addr], nil
}

func (m *Memory) Write8(seg SegmentID, off uint32, v byte) error {
	addr, err := m.resolve(seg, off, 1)
	if err != nil {
		return err
	}
	m.buf[addr] = v
	return nil
}

func (m *Memory) Read16(seg SegmentID, off uint32) (uint16, error) {
	addr, err := m.resolve(seg, off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.buf[addr:]), nil
}

func (m *Memory) Write16(seg SegmentID, off uint32, v uint16) error {
	addr, err := m.resolve(seg, off, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.buf[addr:], v)
	return nil
}

func (m *Memory) Read32(seg SegmentID, off uint32) (uint32, error) {
	addr, err := m.resolve(seg, off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.buf[addr:]), nil
}

func (m *Memory) Write32(seg SegmentID, off uint32, v uint32) error {
	addr, err := m.resolve(seg, off, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.buf[addr:], v)
	return nil
}

func (m *Memory) Read32F(seg SegmentID, off uint32) (float32, error) {
	bits, err := m.Read32(seg, off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (m *Memory) Write32F(seg SegmentID, off uint32, v float32) error {
	return m.Write32(seg, off, math.Float32bits(v))
}

// Dump renders the linear address range [start, end) as space-separated
// hex bytes, the way a debugger inspector would.
func (m *Memory) Dump(start, end uint32) (string, error) {
	if end < start || end > MemorySize {
		return "", newError(KindRange, "invalid dump range [%d,%d)", start, end)
	}
	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", m.buf[i])
	}
	return b.String(), nil
}
