// Package boot implements the outer reset loop (§4.5): read the program-info
// record, poll for an incoming transfer, drive the Image Assembler across
// however many transport packets it takes, and either jump into the stored
// user program or restart. It is the one package that wires xmodem and image
// together; everything else in the bootloader core is a leaf the decider
// drives.
package boot

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/hachi-boot/hachi/pkg/image"
	"github.com/hachi-boot/hachi/pkg/xmodem"
)

// Indicator is the visual-feedback collaborator (§2): on/off/toggle, with no
// further semantics assumed by the core.
type Indicator interface {
	On()
	Off()
	Toggle()
}

// Jumper is the architecture-specific trampoline that tears down the
// bootloader's execution context and transfers control to the user image's
// vector table. Jump does not return on success; real implementations never
// return at all. Host-side tests and cmd/bootctl supply a logging no-op.
type Jumper interface {
	Jump(vectorAddr uint32) error
}

// Decider is the Boot Decider (§4.5): the outer loop tying the Transfer
// Session and Image Assembler together.
type Decider struct {
	flash      image.FlashIO
	layout     image.Layout
	assembler  *image.Assembler
	session    *xmodem.Session
	indicator  Indicator
	jumper     Jumper

	// transportPacketCount is reset every outer-loop iteration and used to
	// drive the indicator's toggle-every-two-packets policy.
	transportPacketCount int
}

// New builds a Decider wiring together the given flash device, layout,
// assembler, transfer session, indicator, and jumper.
func New(flash image.FlashIO, layout image.Layout, assembler *image.Assembler, session *xmodem.Session, indicator Indicator, jumper Jumper) *Decider {
	return &Decider{
		flash:     flash,
		layout:    layout,
		assembler: assembler,
		session:   session,
		indicator: indicator,
		jumper:    jumper,
	}
}

// readProgInfo loads the Program-Info Record from its dedicated flash page
// and reports whether it is valid per §4.5 step 1.
func (d *Decider) readProgInfo() (image.ProgInfo, bool) {
	page, err := d.flash.Read(d.layout.ProgInfoOffset, d.layout.PageSize)
	if err != nil {
		log.Errorf("boot: program-info read failed: %v", err)
		return image.ProgInfo{}, false
	}
	info := image.DecodeProgInfo(page)
	return info, info.Valid(d.layout)
}

// RunOnce executes a single outer-loop iteration (§4.5 steps 1-7) and
// reports whether it ended by jumping into the user program. It never
// returns true in practice on the target (the jump does not return), but
// host-side callers use the boolean to stop looping in tests and
// simulations.
func (d *Decider) RunOnce(ctx context.Context) (jumped bool) {
	info, progPresent := d.readProgInfo()

	timeout := d.assembler.Begin(progPresent)
	d.indicator.On()
	d.transportPacketCount = 0

	buf := d.assembler.PacketBuf()
	outcome := d.session.RecvBegin(ctx, buf, timeout)
	log.Infof("boot: recv_begin outcome=%s prog_present=%t", outcome, progPresent)

	switch outcome {
	case xmodem.XMInitialTimeout, xmodem.XMCan:
		if progPresent {
			return d.jumpToProgram(info)
		}
		log.Infof("boot: no program present, restarting poll")
		return false
	case xmodem.XMOK:
		d.driveTransfer(ctx)
		return false
	default:
		log.Infof("boot: recv_begin ended in %s, restarting", outcome)
		return false
	}
}

// Run repeats RunOnce forever (§4.5: "Outer loop, repeated forever"). On the
// target this call never returns; host-side callers pass a cancellable ctx.
func (d *Decider) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if d.RunOnce(ctx) {
			return
		}
	}
}

// driveTransfer runs the Image Assembler drive loop (§4.5 step 6): alternate
// absorb_packet with Transfer Session reads until a terminal outcome.
func (d *Decider) driveTransfer(ctx context.Context) {
	res := d.assembler.AbsorbPacket()
	d.notePacket()

	for {
		if res.Abort {
			log.Warnf("boot: aborting transfer: %v", res.Err)
			d.session.RecvCancel()
			return
		}

		buf := d.assembler.PacketBuf()
		outcome := d.session.RecvNext(ctx, buf, d.assembler.NextPacketNum())
		log.Debugf("boot: recv_next outcome=%s", outcome)

		switch outcome {
		case xmodem.XMOK:
			res = d.assembler.AbsorbPacket()
			d.notePacket()
			continue
		case xmodem.XMEot:
			if err := d.assembler.HandleEOT(); err != nil {
				log.Warnf("boot: transfer ended with incomplete image: %v", err)
			} else {
				log.Infof("boot: transfer complete")
			}
			return
		case xmodem.XMCan:
			log.Infof("boot: sender cancelled transfer")
			return
		default:
			log.Warnf("boot: transfer session aborted: %s", outcome)
			return
		}
	}
}

// notePacket implements the indicator's "toggle every two successful
// transport packets" policy (§4.5).
func (d *Decider) notePacket() {
	d.transportPacketCount++
	if d.transportPacketCount%2 == 0 {
		d.indicator.Toggle()
	}
}

func (d *Decider) jumpToProgram(info image.ProgInfo) bool {
	d.indicator.Off()
	vector := info.ProgAddr + image.BOOT2Size
	log.Infof("boot: jumping to user program at 0x%08x", vector)
	if err := d.jumper.Jump(vector); err != nil {
		log.Errorf("boot: jump failed: %v", err)
		return false
	}
	return true
}
