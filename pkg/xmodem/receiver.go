package xmodem

import (
	"context"
	"time"

	"github.com/hachi-boot/hachi/internal/crc"
	log "github.com/sirupsen/logrus"
)

// readByte reads a single byte from io within timeout, translating a
// deadline miss into (0, false).
func readByte(ctx context.Context, io ByteIO, timeout time.Duration) (byte, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	b, err := io.ReadByte(cctx)
	if err != nil {
		return 0, false
	}
	return b, true
}

// recvPacket receives one framed transport packet into buf (which must have
// room for PayloadSize bytes), per §4.2. pktTimeout bounds the wait for the
// first byte of a new packet; dataTimeout bounds every byte after that.
func recvPacket(ctx context.Context, io ByteIO, buf []byte, expectedSeq uint8, pktTimeout, dataTimeout time.Duration) PacketOutcome {
	first, ok := readByte(ctx, io, pktTimeout)
	if !ok {
		return PktTimeout
	}
	switch first {
	case SOH:
		// fall through to sequence byte
	case EOT:
		return PktEOT
	case CAN:
		return PktCan
	default:
		log.Debugf("xmodem: unexpected first byte 0x%02x", first)
		return PktBadData
	}

	seq, ok := readByte(ctx, io, dataTimeout)
	if !ok {
		return PktDataTimeout
	}
	if seq != expectedSeq && seq != expectedSeq-1 {
		log.Warnf("xmodem: fatal sequence mismatch, got %d want %d or %d", seq, expectedSeq, expectedSeq-1)
		return PktFatal
	}

	comp, ok := readByte(ctx, io, dataTimeout)
	if !ok {
		return PktDataTimeout
	}
	if byte(seq+comp) != 0xFF {
		log.Debugf("xmodem: bad sequence complement seq=%d comp=%d", seq, comp)
		return PktBadData
	}

	for i := 0; i < PayloadSize; i++ {
		b, ok := readByte(ctx, io, dataTimeout)
		if !ok {
			return PktDataTimeout
		}
		buf[i] = b
	}

	crcHi, ok := readByte(ctx, io, dataTimeout)
	if !ok {
		return PktDataTimeout
	}
	crcLo, ok := readByte(ctx, io, dataTimeout)
	if !ok {
		return PktDataTimeout
	}
	wireCRC := crc.CRC16(crcHi)<<8 | crc.CRC16(crcLo)
	if wireCRC != crc.Compute(buf[:PayloadSize]) {
		log.Debugf("xmodem: CRC mismatch, wire=%04x computed=%04x", wireCRC, crc.Compute(buf[:PayloadSize]))
		return PktBadData
	}

	if seq == expectedSeq {
		return PktOK
	}
	return PktRepeat
}
