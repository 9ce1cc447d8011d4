// Command bootctl is a host-side harness for the bootloader core: it drives
// the full Boot Decider loop against either a real serial port or an
// in-memory loopback simulation, backed by pkg/hostflash since no real
// flash driver exists off-target. Grounded on the teacher's cmd/sdo_client
// and cmd/canopen_test exercise binaries (stdlib flag, logrus, a single
// main wiring a network/client together).
package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/hachi-boot/hachi/pkg/boot"
	"github.com/hachi-boot/hachi/pkg/config"
	"github.com/hachi-boot/hachi/pkg/hostflash"
	"github.com/hachi-boot/hachi/pkg/image"
	"github.com/hachi-boot/hachi/pkg/serialio"
	"github.com/hachi-boot/hachi/pkg/xmodem"
)

func main() {
	device := flag.String("device", "", "serial device path, e.g. /dev/ttyACM0")
	configPath := flag.String("config", "", "ini config file path (defaults used if absent)")
	simImage := flag.String("sim-image", "", "path to a pre-built image file to replay over an in-memory loopback instead of a real port")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("bootctl: loading config: %v", err)
	}

	flash := hostflash.New(cfg.Layout.FlashSize, cfg.Layout.SectorSize, cfg.Layout.PageSize)

	io, cleanup, err := openTransport(*device, *simImage)
	if err != nil {
		log.Fatalf("bootctl: opening transport: %v", err)
	}
	defer cleanup()

	assembler := image.NewAssembler(flash, cfg.Layout, cfg.BootTimeout, cfg.InitialPacketTimeout, cfg.Family)
	session := xmodem.NewSession(io, xmodem.Config{
		PurgeTimeout:  cfg.PurgeTimeout,
		Retry:         cfg.Retry,
		PacketTimeout: cfg.PacketTimeout,
		DataTimeout:   cfg.DataTimeout,
	})
	decider := boot.New(flash, cfg.Layout, assembler, session, logIndicator{}, logJumper{})

	log.Infof("bootctl: starting outer loop (family=%s)", cfg.Family)
	decider.Run(context.Background())
}

// openTransport picks the real serial port, or an in-memory loopback fed by
// the bundled sender, depending on which flags were given.
func openTransport(device, simImage string) (xmodem.ByteIO, func(), error) {
	if simImage != "" {
		data, err := os.ReadFile(simImage)
		if err != nil {
			return nil, nil, err
		}
		a, b := serialio.NewPipePair()
		go func() {
			if err := sendImage(b, data); err != nil {
				log.Errorf("bootctl: simulated sender failed: %v", err)
			}
		}()
		return a, func() {}, nil
	}

	port, err := serialio.Open(device)
	if err != nil {
		return nil, nil, err
	}
	return port, func() { port.Close() }, nil
}
