package image

import "encoding/binary"

func buildBlockBytes(flags, targetAddr, payloadSize, blockNo, numBlocks, aux uint32, payload []byte) []byte {
	buf := make([]byte, BlockSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], magicStart0)
	le.PutUint32(buf[4:8], magicStart1)
	le.PutUint32(buf[8:12], flags)
	le.PutUint32(buf[12:16], targetAddr)
	le.PutUint32(buf[16:20], payloadSize)
	le.PutUint32(buf[20:24], blockNo)
	le.PutUint32(buf[24:28], numBlocks)
	le.PutUint32(buf[28:32], aux)
	copy(buf[PayloadOffset:PayloadOffset+PayloadSize], payload)
	le.PutUint32(buf[BlockSize-4:], magicEnd)
	return buf
}

func fillByte(b byte) []byte {
	p := make([]byte, PayloadSize)
	for i := range p {
		p[i] = b
	}
	return p
}
