package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCcittSingle(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestComputeEmpty(t *testing.T) {
	assert.EqualValues(t, 0, Compute(nil))
}

func TestComputeMatchesSingle(t *testing.T) {
	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = byte(i * 7)
	}

	var want CRC16
	for _, b := range buf {
		want.Single(b)
	}

	assert.EqualValues(t, want, Compute(buf))
}

func TestComputeDiffersOnBitFlip(t *testing.T) {
	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = byte(i)
	}
	base := Compute(buf)

	buf[64] ^= 0x01
	assert.NotEqual(t, base, Compute(buf))
}
