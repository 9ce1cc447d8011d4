package xmodem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecvPacketOK(t *testing.T) {
	payload := fillPayload(0x42)
	io := &fakeIO{steps: stepsOf(packetBytes(1, payload))}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktOK, res)
	assert.Equal(t, payload, buf)
}

func TestRecvPacketRepeatOnPreviousSeq(t *testing.T) {
	payload := fillPayload(0x01)
	io := &fakeIO{steps: stepsOf(packetBytes(4, payload))}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	// expecting seq 5, but sender retransmits seq 4 (the previous packet).
	res := recvPacket(context.Background(), io, buf, 5, pkt, data)

	assert.Equal(t, PktRepeat, res)
}

func TestRecvPacketFatalOnWildSeq(t *testing.T) {
	payload := fillPayload(0x01)
	io := &fakeIO{steps: stepsOf(packetBytes(200, payload))}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 5, pkt, data)

	assert.Equal(t, PktFatal, res)
}

func TestRecvPacketBadCRC(t *testing.T) {
	payload := fillPayload(0x01)
	frame := packetBytes(1, payload)
	frame[len(frame)-1] ^= 0xFF // corrupt low CRC byte
	io := &fakeIO{steps: stepsOf(frame)}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktBadData, res)
}

func TestRecvPacketBadComplement(t *testing.T) {
	payload := fillPayload(0x01)
	frame := packetBytes(1, payload)
	frame[2] ^= 0x01 // corrupt the complement byte
	io := &fakeIO{steps: stepsOf(frame)}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktBadData, res)
}

func TestRecvPacketEOT(t *testing.T) {
	io := &fakeIO{steps: stepsOf([]byte{EOT})}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktEOT, res)
}

func TestRecvPacketCan(t *testing.T) {
	io := &fakeIO{steps: stepsOf([]byte{CAN})}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktCan, res)
}

func TestRecvPacketUnexpectedFirstByte(t *testing.T) {
	io := &fakeIO{steps: stepsOf([]byte{0x55})}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktBadData, res)
}

func TestRecvPacketFirstByteTimeout(t *testing.T) {
	io := &fakeIO{steps: []step{timeoutStep()}}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktTimeout, res)
}

func TestRecvPacketDataTimeoutMidPayload(t *testing.T) {
	io := &fakeIO{steps: append(stepsOf([]byte{SOH, 1, 0xFE}), timeoutStep())}
	pkt, data := testTimeouts()

	buf := make([]byte, PayloadSize)
	res := recvPacket(context.Background(), io, buf, 1, pkt, data)

	assert.Equal(t, PktDataTimeout, res)
}

func stepsOf(bs []byte) []step {
	return bytesSteps(bs...)
}
