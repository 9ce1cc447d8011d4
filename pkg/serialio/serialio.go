// Package serialio provides xmodem.ByteIO implementations for the host-side
// harness: a real serial port via go.bug.st/serial, and a deterministic
// in-memory pipe pair for tests and simulation. Grounded on the teacher's
// real-bus-plus-virtual-bus split (VirtualCanBus in virtual.go): a real
// transport and a test double sharing one interface.
package serialio

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/hachi-boot/hachi/pkg/xmodem"
)

// Port wraps a real serial port as an xmodem.ByteIO. Since go.bug.st/serial's
// Read is a blocking call with no per-call context support, a single
// background goroutine drains the port into a channel; ReadByte then selects
// on that channel against the caller's context deadline (§5): the goroutine
// exists only to bridge a blocking port read to a context deadline.
type Port struct {
	port serial.Port
	rx   chan byte
	errs chan error
}

// Open opens devicePath at 115200 8N1 (§6) and starts the background reader.
func Open(devicePath string) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", devicePath, err)
	}

	p := &Port{
		port: sp,
		rx:   make(chan byte),
		errs: make(chan error, 1),
	}
	go p.readLoop()
	return p, nil
}

func (p *Port) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := p.port.Read(buf)
		if err != nil {
			select {
			case p.errs <- err:
			default:
			}
			return
		}
		if n == 0 {
			continue
		}
		p.rx <- buf[0]
	}
}

// ReadByte implements xmodem.ByteIO.
func (p *Port) ReadByte(ctx context.Context) (byte, error) {
	select {
	case b := <-p.rx:
		return b, nil
	case err := <-p.errs:
		log.Errorf("serialio: port read failed: %v", err)
		return 0, xmodem.ErrByteTimeout
	case <-ctx.Done():
		return 0, xmodem.ErrByteTimeout
	}
}

// WriteByte implements xmodem.ByteIO.
func (p *Port) WriteByte(b byte) error {
	_, err := p.port.Write([]byte{b})
	return err
}

// Close releases the underlying port. The background reader goroutine exits
// on its next failed Read once the port is closed.
func (p *Port) Close() error {
	return p.port.Close()
}

// Pipe is one end of an in-memory, full-duplex byte pipe: an xmodem.ByteIO
// double for tests and the -sim-image mode of cmd/bootctl, with no real hardware
// or timing dependency.
type Pipe struct {
	out chan<- byte
	in  <-chan byte
}

// NewPipePair returns two connected Pipes: bytes written to a are read from
// b, and vice versa.
func NewPipePair() (a, b *Pipe) {
	ab := make(chan byte, 256)
	ba := make(chan byte, 256)
	a = &Pipe{out: ab, in: ba}
	b = &Pipe{out: ba, in: ab}
	return a, b
}

// ReadByte implements xmodem.ByteIO.
func (p *Pipe) ReadByte(ctx context.Context) (byte, error) {
	select {
	case b := <-p.in:
		return b, nil
	case <-ctx.Done():
		return 0, xmodem.ErrByteTimeout
	}
}

// WriteByte implements xmodem.ByteIO. It never blocks for long: the channel
// is generously buffered for the packet sizes this protocol uses.
func (p *Pipe) WriteByte(b byte) error {
	select {
	case p.out <- b:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("serialio: pipe write stalled, reader not draining")
	}
}
