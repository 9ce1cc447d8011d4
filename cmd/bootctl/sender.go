package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hachi-boot/hachi/internal/crc"
	"github.com/hachi-boot/hachi/pkg/xmodem"
)

const pollByte = 'C'

// sendImage plays the sender side of the wire protocol (§6) over io,
// transmitting data (which must already be a concatenation of 512-byte
// Image Blocks) as 128-byte transport packets, retrying on NAK, and
// finishing with EOT. It exists only for -sim-image integration runs: the real
// sender is always the workstation-side flashing tool, out of scope for the
// bootloader core itself.
func sendImage(io xmodem.ByteIO, data []byte) error {
	if len(data)%xmodem.PayloadSize != 0 {
		return fmt.Errorf("bootctl: image length %d is not a multiple of %d", len(data), xmodem.PayloadSize)
	}

	if err := waitForPoll(io); err != nil {
		return err
	}

	seq := byte(1)
	for offset := 0; offset < len(data); offset += xmodem.PayloadSize {
		chunk := data[offset : offset+xmodem.PayloadSize]
		if err := sendPacketWithRetry(io, seq, chunk); err != nil {
			return err
		}
		seq++
		log.Debugf("bootctl: sender sent packet seq=%d", seq-1)
	}

	if err := io.WriteByte(xmodem.EOT); err != nil {
		return err
	}
	return waitForAck(io)
}

func waitForPoll(io xmodem.ByteIO) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	b, err := io.ReadByte(ctx)
	if err != nil {
		return fmt.Errorf("bootctl: sender timed out waiting for poll: %w", err)
	}
	if b != pollByte {
		return fmt.Errorf("bootctl: sender expected poll byte 0x%02x, got 0x%02x", byte(pollByte), b)
	}
	return nil
}

func sendPacketWithRetry(io xmodem.ByteIO, seq byte, chunk []byte) error {
	const maxRetries = 10
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := writePacket(io, seq, chunk); err != nil {
			return err
		}
		resp, err := readResponseByte(io)
		if err != nil {
			return err
		}
		switch resp {
		case xmodem.ACK:
			return nil
		case xmodem.NAK:
			log.Warnf("bootctl: sender got NAK for seq=%d, retrying", seq)
			continue
		case xmodem.CAN:
			return fmt.Errorf("bootctl: receiver cancelled transfer")
		default:
			return fmt.Errorf("bootctl: unexpected response byte 0x%02x", resp)
		}
	}
	return fmt.Errorf("bootctl: sender exhausted retries on seq=%d", seq)
}

func writePacket(io xmodem.ByteIO, seq byte, chunk []byte) error {
	c := crc.Compute(chunk)
	bytes := make([]byte, 0, 4+len(chunk))
	bytes = append(bytes, xmodem.SOH, seq, seq^0xFF)
	bytes = append(bytes, chunk...)
	bytes = append(bytes, byte(c>>8), byte(c))
	for _, b := range bytes {
		if err := io.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

func readResponseByte(io xmodem.ByteIO) (byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return io.ReadByte(ctx)
}

func waitForAck(io xmodem.ByteIO) error {
	b, err := readResponseByte(io)
	if err != nil {
		return err
	}
	if b != xmodem.ACK {
		return fmt.Errorf("bootctl: sender expected ACK after EOT, got 0x%02x", b)
	}
	return nil
}
