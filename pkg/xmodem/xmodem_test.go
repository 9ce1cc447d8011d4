package xmodem

import (
	"context"
	"time"

	"github.com/hachi-boot/hachi/internal/crc"
)

// step is one simulated byte arrival (or timeout) on the fake link.
type step struct {
	timeout bool
	b       byte
}

// fakeIO is an in-memory ByteIO double driven by a pre-scripted sequence of
// steps, recording every byte written back.
type fakeIO struct {
	steps   []step
	idx     int
	written []byte
}

func (f *fakeIO) ReadByte(ctx context.Context) (byte, error) {
	if f.idx >= len(f.steps) {
		<-ctx.Done()
		return 0, ErrByteTimeout
	}
	s := f.steps[f.idx]
	f.idx++
	if s.timeout {
		<-ctx.Done()
		return 0, ErrByteTimeout
	}
	return s.b, nil
}

func (f *fakeIO) WriteByte(b byte) error {
	f.written = append(f.written, b)
	return nil
}

func bytesSteps(bs ...byte) []step {
	steps := make([]step, len(bs))
	for i, b := range bs {
		steps[i] = step{b: b}
	}
	return steps
}

func timeoutStep() step { return step{timeout: true} }

// packetBytes builds a well-formed transport packet frame for seq carrying payload.
func packetBytes(seq byte, payload []byte) []byte {
	if len(payload) != PayloadSize {
		panic("payload must be PayloadSize bytes")
	}
	c := crc.Compute(payload)
	out := make([]byte, 0, 4+PayloadSize)
	out = append(out, SOH, seq, seq^0xFF)
	out = append(out, payload...)
	out = append(out, byte(c>>8), byte(c))
	return out
}

func fillPayload(b byte) []byte {
	p := make([]byte, PayloadSize)
	for i := range p {
		p[i] = b
	}
	return p
}

func testTimeouts() (time.Duration, time.Duration) {
	return 20 * time.Millisecond, 20 * time.Millisecond
}
