// Package config loads the bootloader's configurable timeouts, expected
// device family, and flash geometry overrides from an ini file, the way the
// teacher's EDS parser loads an object dictionary from ini (pkg/od.Parse).
// A device shipped with no config file, or one missing individual keys,
// falls back to the compiled-in defaults of §6.
package config

import (
	"strconv"
	"time"

	"gopkg.in/ini.v1"

	"github.com/hachi-boot/hachi/pkg/family"
	"github.com/hachi-boot/hachi/pkg/image"
)

// Config is the fully resolved set of parameters the Boot Decider, Image
// Assembler, and Transfer Session are constructed from.
type Config struct {
	PurgeTimeout         time.Duration
	Retry                int
	InitialPacketTimeout time.Duration
	BootTimeout          time.Duration
	PacketTimeout        time.Duration
	DataTimeout          time.Duration

	Family family.ID
	Layout image.Layout
}

// Default returns the compiled-in configuration assumed throughout the spec.
func Default() Config {
	return Config{
		PurgeTimeout:         1 * time.Second,
		Retry:                10,
		InitialPacketTimeout: 60 * time.Second,
		BootTimeout:          500 * time.Millisecond,
		PacketTimeout:        1 * time.Second,
		DataTimeout:          1 * time.Second,
		Family:               family.RP2040,
		Layout:               image.DefaultLayout(),
	}
}

// Load reads an ini-format file at path, overlaying any keys present in its
// [bootloader] and [flash] sections onto Default(). A missing file is not
// an error: Load returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, err
	}

	bl := f.Section("bootloader")
	readDuration(bl, "XMODEM_PURGE_TIMEOUT", &cfg.PurgeTimeout)
	readInt(bl, "XMODEM_RETRY", &cfg.Retry)
	readDuration(bl, "XMODEM_INITIAL_PACKET_TIMEOUT", &cfg.InitialPacketTimeout)
	readDuration(bl, "XMODEM_BOOT_TIMEOUT", &cfg.BootTimeout)
	readDuration(bl, "XMODEM_PACKET_TIMEOUT", &cfg.PacketTimeout)
	readDuration(bl, "XMODEM_DATA_TIMEOUT", &cfg.DataTimeout)
	if v, ok := readHexOrDecUint32(bl, "FAMILY_ID"); ok {
		cfg.Family = family.ID(v)
	}

	fl := f.Section("flash")
	readUint32(fl, "XIP_BASE", &cfg.Layout.XIPBase)
	readUint32(fl, "FLASH_SIZE", &cfg.Layout.FlashSize)
	readUint32(fl, "BL_SIZE", &cfg.Layout.BLSize)
	readUint32(fl, "SECTOR_SIZE", &cfg.Layout.SectorSize)
	readUint32(fl, "PAGE_SIZE", &cfg.Layout.PageSize)
	readUint32(fl, "PROG_INFO_OFFSET", &cfg.Layout.ProgInfoOffset)

	return cfg, nil
}

func readDuration(section *ini.Section, key string, dst *time.Duration) {
	k := section.Key(key)
	if k.Value() == "" {
		return
	}
	if ms, err := k.Int64(); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func readInt(section *ini.Section, key string, dst *int) {
	k := section.Key(key)
	if k.Value() == "" {
		return
	}
	if v, err := k.Int(); err == nil {
		*dst = v
	}
}

// readUint32 parses with base 0 so both decimal and 0x-prefixed hex values
// are accepted, matching how flash addresses are conventionally written.
func readUint32(section *ini.Section, key string, dst *uint32) {
	if v, ok := readHexOrDecUint32(section, key); ok {
		*dst = v
	}
}

func readHexOrDecUint32(section *ini.Section, key string) (uint32, bool) {
	k := section.Key(key)
	if k.Value() == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(k.Value(), 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
