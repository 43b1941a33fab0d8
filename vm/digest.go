package vm

// Digest is the bump-allocated, length-prefixed string interning
// table living in the STRING segment (spec 3.5, 4.2). Addresses it
// hands out are offsets relative to the segment base, not linear
// memory addresses, so the segment can be relocated freely.
type Digest struct {
	mem *Memory
	sbp uint32 // next free offset, relative to SegString base
}

func NewDigest(mem *Memory) *Digest {
	return &Digest{mem: mem, sbp: 0}
}

const maxStringLen = 255

// Add writes [len][bytes] at the current cursor and returns the
// record's start offset.
func (d *Digest) Add(s string) (uint32, error) {
	if len(s) > maxStringLen {
		return 0, newError(KindString, "String too long (max 255 characters)")
	}
	size := d.mem.SegmentSize(SegString)
	needed := uint32(1 + len(s))
	if size-d.sbp < needed {
		return 0, newError(KindString, "String digest overflow")
	}

	addr := d.sbp
	if err := d.mem.Write8(SegString, addr, byte(len(s))); err != nil {
		return 0, err
	}
	for i := 0; i < len(s); i++ {
		if err := d.mem.Write8(SegString, addr+1+uint32(i), s[i]); err != nil {
			return 0, err
		}
	}
	d.sbp += needed
	return addr, nil
}

// Get reads back the string recorded at addr.
func (d *Digest) Get(addr uint32) (string, error) {
	size := d.mem.SegmentSize(SegString)
	if addr > size {
		return "", newError(KindRange, "string address %d out of bounds", addr)
	}
	length, err := d.mem.Read8(SegString, addr)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	for i := uint32(0); i < uint32(length); i++ {
		b, err := d.mem.Read8(SegString, addr+1+i)
		if err != nil {
			return "", err
		}
		buf[i] = b
	}
	return string(buf), nil
}

// Find linearly scans existing records for an exact match, returning
// (addr, true) on hit or (0, false) on miss.
func (d *Digest) Find(s string) (uint32, bool) {
	var off uint32
	for off < d.sbp {
		length, err := d.mem.Read8(SegString, off)
		if err != nil {
			return 0, false
		}
		if uint32(length) == uint32(len(s)) {
			match := true
			for i := uint32(0); i < uint32(length); i++ {
				b, _ := d.mem.Read8(SegString, off+1+i)
				if b != s[i] {
					match = false
					break
				}
			}
			if match {
				return off, true
			}
		}
		off += 1 + uint32(length)
	}
	return 0, false
}

// Intern returns the existing record address for s, or creates one.
func (d *Digest) Intern(s string) (uint32, error) {
	if addr, ok := d.Find(s); ok {
		return addr, nil
	}
	return d.Add(s)
}

// Reset truncates the digest back to addr, discarding everything
// interned after it.
func (d *Digest) Reset(addr uint32) error {
	if addr > d.mem.SegmentSize(SegString) {
		return newError(KindRange, "digest reset address %d out of bounds", addr)
	}
	d.sbp = addr
	return nil
}

// SBP returns the current write cursor, for save/restore around
// top-level preserve semantics.
func (d *Digest) SBP() uint32 { return d.sbp }
