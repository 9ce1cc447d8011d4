package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgInfoRoundTrip(t *testing.T) {
	p := ProgInfo{ProgAddr: 0x10010000, Size: 4096}
	page := EncodeProgInfo(p, 256)

	assert.Len(t, page, 256)
	assert.Equal(t, p, DecodeProgInfo(page))
	// remainder of the page is zero-filled.
	for _, b := range page[8:] {
		assert.Equal(t, byte(0), b)
	}
}

func TestProgInfoValidRejectsErased(t *testing.T) {
	layout := DefaultLayout()
	erased := ProgInfo{ProgAddr: 0xFFFFFFFF, Size: 0xFFFFFFFF}
	assert.False(t, erased.Valid(layout))
}

func TestProgInfoValidRejectsZeroSize(t *testing.T) {
	layout := DefaultLayout()
	p := ProgInfo{ProgAddr: layout.ProgAreaBegin(), Size: 0}
	assert.False(t, p.Valid(layout))
}

func TestProgInfoValidRejectsOutOfArea(t *testing.T) {
	layout := DefaultLayout()
	p := ProgInfo{ProgAddr: layout.ProgAreaBegin() - 1, Size: 1024}
	assert.False(t, p.Valid(layout))

	p2 := ProgInfo{ProgAddr: layout.ProgAreaEnd(), Size: 1024}
	assert.False(t, p2.Valid(layout))
}

func TestProgInfoValidAccepts(t *testing.T) {
	layout := DefaultLayout()
	p := ProgInfo{ProgAddr: layout.ProgAreaBegin(), Size: 1024}
	assert.True(t, p.Valid(layout))
}
