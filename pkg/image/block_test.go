package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBlockOK(t *testing.T) {
	layout := DefaultLayout()
	payload := fillByte(0x5A)
	raw := buildBlockBytes(0, layout.ProgAreaBegin(), PayloadSize, 0, 2, 1024, payload)

	blk, err := DecodeBlock(raw)

	assert.NoError(t, err)
	assert.Equal(t, layout.ProgAreaBegin(), blk.TargetAddr)
	assert.Equal(t, uint32(2), blk.NumBlocks)
	assert.Equal(t, payload, blk.Payload[:])
}

func TestDecodeBlockWrongLength(t *testing.T) {
	_, err := DecodeBlock(make([]byte, 10))
	assert.ErrorIs(t, err, ErrBadBlockLength)
}

func TestDecodeBlockBadStartMagic(t *testing.T) {
	raw := buildBlockBytes(0, 0x10010000, PayloadSize, 0, 1, 0, fillByte(0))
	raw[0] ^= 0xFF
	_, err := DecodeBlock(raw)
	assert.ErrorIs(t, err, ErrMagicMismatch)
}

func TestDecodeBlockBadEndMagic(t *testing.T) {
	raw := buildBlockBytes(0, 0x10010000, PayloadSize, 0, 1, 0, fillByte(0))
	raw[BlockSize-1] ^= 0xFF
	_, err := DecodeBlock(raw)
	assert.ErrorIs(t, err, ErrMagicMismatch)
}

func TestHasFamilyID(t *testing.T) {
	raw := buildBlockBytes(flagFamilyIDPresent, 0x10010000, PayloadSize, 0, 1, 0xE48BFF56, fillByte(0))
	blk, err := DecodeBlock(raw)
	assert.NoError(t, err)
	assert.True(t, blk.HasFamilyID())
	assert.Equal(t, uint32(0xE48BFF56), blk.Aux)
}
