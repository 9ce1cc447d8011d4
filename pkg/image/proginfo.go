package image

import "encoding/binary"

// ProgInfoSize is the encoded size of a Program-Info Record; it occupies one
// flash page, with the remainder of the page zero-filled.
const ProgInfoSize = 8

// ProgInfo is the durable record of the currently installed user program
// (§3): its absolute start address in XIP space and its byte length. It is
// the sole on-flash state distinguishing "program present" from "absent".
type ProgInfo struct {
	ProgAddr uint32
	Size     uint32
}

// EncodeProgInfo renders p as a PageSize-byte flash page, zero-padded after
// the two fields.
func EncodeProgInfo(p ProgInfo, pageSize uint32) []byte {
	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint32(buf[0:4], p.ProgAddr)
	binary.LittleEndian.PutUint32(buf[4:8], p.Size)
	return buf
}

// DecodeProgInfo reads the two leading words of a flash page as a ProgInfo.
func DecodeProgInfo(buf []byte) ProgInfo {
	return ProgInfo{
		ProgAddr: binary.LittleEndian.Uint32(buf[0:4]),
		Size:     binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// Valid reports whether p describes a usable program, per the Boot
// Decider's validity check (§4.5): the address must lie in the program
// area and the size must not be the erased (0xFFFFFFFF) or zero sentinel.
func (p ProgInfo) Valid(layout Layout) bool {
	if p.ProgAddr < layout.ProgAreaBegin() || p.ProgAddr >= layout.ProgAreaEnd() {
		return false
	}
	if p.Size == 0 || p.Size == 0xFFFFFFFF {
		return false
	}
	return true
}
