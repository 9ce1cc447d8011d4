package image

import (
	"time"

	"github.com/hachi-boot/hachi/pkg/family"
	log "github.com/sirupsen/logrus"
)

// BOOT2Size is the size in bytes of the user image's own second-stage
// loader; it precedes the vector table at the start of every image, and is
// the one region of flash the first-block commit takes care to preserve
// when the image overlaps sector 0.
const BOOT2Size = 256

// sessionState is the volatile per-attempt Session State of §3.
type sessionState struct {
	progAddr    uint32
	numBlks     uint32
	numBlksRecv uint32
	numPktsRecv int
	nextPktNum  uint8
}

// AbsorbResult reports what the caller (the Boot Decider) should do after
// AbsorbPacket processes one successfully received transport packet.
type AbsorbResult struct {
	// NeedMore is true when the current block is still incomplete: the
	// caller should request another transport packet.
	NeedMore bool
	// BlockCommitted is true when a full block was just validated and
	// written to flash.
	BlockCommitted bool
	// Abort is true when the block failed validation; the caller must
	// cancel the Transfer Session and return to the Boot Decider.
	Abort bool
	// Err is set whenever Abort is true, describing why.
	Err error
}

// Assembler reassembles Image Blocks from Transport Packets, validates them
// against the image format, and sequences flash writes in a crash-safe
// order (§4.4). It holds the one block buffer and the Session State for a
// single reset attempt.
type Assembler struct {
	layout         Layout
	flash          FlashIO
	expectedFamily family.ID

	bootTimeout    time.Duration
	initialTimeout time.Duration

	buf   [BlockSize]byte
	state sessionState
}

// NewAssembler builds an Assembler bound to the given flash device, layout,
// and poll timeouts. expectedFamily is compared against a block's auxiliary
// word only when that block sets the family-id-present flag.
func NewAssembler(flash FlashIO, layout Layout, bootTimeout, initialTimeout time.Duration, expectedFamily family.ID) *Assembler {
	return &Assembler{
		layout:         layout,
		flash:          flash,
		expectedFamily: expectedFamily,
		bootTimeout:    bootTimeout,
		initialTimeout: initialTimeout,
	}
}

// Begin resets the Session State for a new outer-loop iteration and returns
// the initial-poll timeout to use: a short grace window when a valid
// program record is already present, a long one otherwise (§4.4).
func (a *Assembler) Begin(progPresent bool) time.Duration {
	a.state = sessionState{nextPktNum: 1}
	if progPresent {
		return a.bootTimeout
	}
	return a.initialTimeout
}

// NextPacketNum is the sequence number the Boot Decider should pass to the
// Transfer Session for the next transport packet.
func (a *Assembler) NextPacketNum() uint8 { return a.state.nextPktNum }

// PacketBuf returns the 128-byte slice of the block buffer the next
// transport packet should be received into.
func (a *Assembler) PacketBuf() []byte {
	off := PayloadOffsetInPacketUnits(a.state.numPktsRecv)
	return a.buf[off : off+128]
}

// PacketsPerBlock is the number of Transport Packets that compose one Image
// Block (§3).
const PacketsPerBlock = BlockSize / 128

// PayloadOffsetInPacketUnits returns the byte offset of the n'th 128-byte
// transport packet within the block buffer.
func PayloadOffsetInPacketUnits(n int) int { return 128 * n }

// AbsorbPacket is called after the Transfer Session delivers one
// successfully received transport packet into the slice last returned by
// PacketBuf. It advances the Session State and, once four packets complete
// a block, validates and commits it.
func (a *Assembler) AbsorbPacket() AbsorbResult {
	a.state.numPktsRecv++
	a.state.nextPktNum++ // 8-bit wrap is implicit in uint8 arithmetic

	if a.state.numPktsRecv < PacketsPerBlock {
		return AbsorbResult{NeedMore: true}
	}

	blk, err := DecodeBlock(a.buf[:])
	if err != nil {
		log.Warnf("image: block decode failed: %v", err)
		return AbsorbResult{Abort: true, Err: err}
	}

	if a.state.numBlksRecv == 0 {
		if err := a.validateFirstBlock(blk); err != nil {
			log.Warnf("image: first block rejected: %v", err)
			return AbsorbResult{Abort: true, Err: err}
		}
		if err := a.commitFirstBlock(blk); err != nil {
			log.Errorf("image: first block flash commit failed: %v", err)
			return AbsorbResult{Abort: true, Err: err}
		}
	} else {
		if err := a.validateSubsequentBlock(blk); err != nil {
			log.Warnf("image: block %d rejected: %v", a.state.numBlksRecv, err)
			return AbsorbResult{Abort: true, Err: err}
		}
		if err := a.commitSubsequentBlock(blk); err != nil {
			log.Errorf("image: block %d flash commit failed: %v", a.state.numBlksRecv, err)
			return AbsorbResult{Abort: true, Err: err}
		}
	}

	a.state.numBlksRecv++
	a.state.numPktsRecv = 0
	log.Infof("image: committed block %d/%d at 0x%08x", a.state.numBlksRecv, a.state.numBlks, blk.TargetAddr)
	return AbsorbResult{BlockCommitted: true}
}

// HandleEOT implements the two EOT cases of §4.4: a transfer that never
// received a single block is a silent no-op, otherwise the block count and
// packet count must be exactly consistent before the Program-Info Record is
// committed. It returns ErrEOTPartialBlock (and leaves the record erased)
// when the transfer ended short.
func (a *Assembler) HandleEOT() error {
	if a.state.numBlks == 0 {
		return nil
	}
	if a.state.numBlksRecv != a.state.numBlks || a.state.numPktsRecv != 0 {
		return ErrEOTPartialBlock
	}

	info := ProgInfo{
		ProgAddr: a.state.progAddr,
		Size:     a.layout.PageSize * a.state.numBlks,
	}
	page := EncodeProgInfo(info, a.layout.PageSize)
	if err := a.flash.Program(a.layout.ProgInfoOffset, page); err != nil {
		return err
	}
	log.Infof("image: program-info committed: addr=0x%08x size=%d", info.ProgAddr, info.Size)
	return nil
}

func (a *Assembler) genericBlockChecks(b *Block) error {
	if b.notMainFlash() {
		return ErrNotMainFlash
	}
	if b.TargetAddr%a.layout.PageSize != 0 {
		return ErrMisaligned
	}
	if b.TargetAddr < a.layout.ProgAreaBegin() || b.TargetAddr >= a.layout.ProgAreaEnd() {
		return ErrOutOfArea
	}
	if b.PayloadSize != PayloadSize {
		return ErrBadPayloadSize
	}
	if b.NumBlocks == 0 || b.BlockNo >= b.NumBlocks {
		return ErrBadBlockCount
	}
	if b.HasFamilyID() && b.Aux != uint32(a.expectedFamily) {
		return &FamilyMismatchError{Expected: uint32(a.expectedFamily), Got: b.Aux}
	}
	return nil
}

func (a *Assembler) validateFirstBlock(b *Block) error {
	if err := a.genericBlockChecks(b); err != nil {
		return err
	}
	if b.BlockNo != 0 {
		return ErrNotFirstBlock
	}
	if uint64(b.TargetAddr)+uint64(PayloadSize)*uint64(b.NumBlocks) > uint64(a.layout.ProgAreaEnd()) {
		return ErrImageOverrunsArea
	}
	return nil
}

func (a *Assembler) validateSubsequentBlock(b *Block) error {
	if err := a.genericBlockChecks(b); err != nil {
		return err
	}
	if b.NumBlocks != a.state.numBlks {
		return ErrBlockCountChanged
	}
	if b.BlockNo != a.state.numBlksRecv {
		return ErrOutOfSequence
	}
	if a.state.progAddr+PayloadSize*a.state.numBlksRecv != b.TargetAddr {
		return ErrNonContiguous
	}
	return nil
}

// commitFirstBlock implements the first-block commit sequencing of §4.4:
// erase the sectors spanning the image, preserving BOOT2 if the image
// overlaps sector 0, program the first payload, then erase the Program-Info
// sector last so the record is invalidated only once flash is otherwise
// ready to receive the rest of the image.
func (a *Assembler) commitFirstBlock(b *Block) error {
	sec1 := a.layout.SectorOf(b.TargetAddr)
	lastByte := b.TargetAddr + PayloadSize*b.NumBlocks - 1
	sec2 := a.layout.SectorOf(lastByte)
	eraseOffset := sec1 * a.layout.SectorSize
	eraseLength := (sec2 - sec1 + 1) * a.layout.SectorSize

	if sec1 == 0 {
		snapshot, err := a.flash.Read(0, BOOT2Size)
		if err != nil {
			return err
		}
		if err := a.flash.EraseSectors(eraseOffset, eraseLength); err != nil {
			return err
		}
		if err := a.flash.Program(0, snapshot); err != nil {
			return err
		}
		if b.TargetAddr != a.layout.XIPBase {
			if err := a.flash.Program(a.layout.Offset(b.TargetAddr), b.Payload[:]); err != nil {
				return err
			}
		}
	} else {
		if err := a.flash.EraseSectors(eraseOffset, eraseLength); err != nil {
			return err
		}
		if err := a.flash.Program(a.layout.Offset(b.TargetAddr), b.Payload[:]); err != nil {
			return err
		}
	}

	if err := a.flash.EraseSectors(a.layout.ProgInfoOffset, a.layout.SectorSize); err != nil {
		return err
	}

	a.state.progAddr = b.TargetAddr
	a.state.numBlks = b.NumBlocks
	return nil
}

func (a *Assembler) commitSubsequentBlock(b *Block) error {
	return a.flash.Program(a.layout.Offset(b.TargetAddr), b.Payload[:])
}
