package twiboot

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChipInfo is the device metadata twiboot reports: the AVR signature
// bytes and the memory geometry everything else is derived from.
type ChipInfo struct {
	Signature  [3]byte
	PageSize   uint8
	FlashSize  uint16
	EepromSize uint16
}

// SignatureString returns the signature as lowercase hex, e.g. "1e950f"
// for an atmega328p.
func (ci *ChipInfo) SignatureString() string {
	return hex.EncodeToString(ci.Signature[:])
}

// Bootloader talks the twiboot command set to a single device on a Bus.
// It owns no retry logic and no state beyond the address; every method is
// one or two bus transactions.
type Bootloader struct {
	bus  Bus
	addr uint8
}

// NewBootloader wraps the given bus for the device at addr. Pass
// DefaultAddress unless the bootloader was built with a custom one.
func NewBootloader(bus Bus, addr uint8) *Bootloader {
	return &Bootloader{bus: bus, addr: addr}
}

// DisableAutoStart keeps the bootloader resident instead of letting it
// time out into the application.
func (b *Bootloader) DisableAutoStart() error {
	return b.bus.Write(b.addr, AbortTimeoutCommand())
}

// StartApplication hands control to the application code. The device
// stops answering bootloader commands afterwards.
func (b *Bootloader) StartApplication() error {
	return b.bus.Write(b.addr, StartApplicationCommand())
}

// ReadVersion returns the bootloader identification string, with the
// reply's trailing padding removed.
func (b *Bootloader) ReadVersion() (string, error) {
	if err := b.bus.Write(b.addr, ReadVersionCommand()); err != nil {
		return "", err
	}
	raw, err := b.bus.Read(b.addr, VersionLength)
	if err != nil {
		return "", err
	}
	if len(raw) != VersionLength {
		return "", &DecodeError{
			Reply:  "version",
			Reason: fmt.Sprintf("expected %d bytes, got %d", VersionLength, len(raw)),
		}
	}
	return strings.TrimRight(string(raw), "\x00\xff "), nil
}

// ReadChipInfo queries the device signature and memory geometry.
func (b *Bootloader) ReadChipInfo() (*ChipInfo, error) {
	if err := b.bus.Write(b.addr, ChipInfoCommand()); err != nil {
		return nil, err
	}
	raw, err := b.bus.Read(b.addr, ChipInfoLength)
	if err != nil {
		return nil, err
	}
	info, err := DecodeChipInfo(raw)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// DecodeChipInfo decodes a raw chip info reply. A reply of the wrong
// length or a page size of zero is rejected here, before anything tries
// to page an image with it.
func DecodeChipInfo(raw []byte) (*ChipInfo, error) {
	if len(raw) != ChipInfoLength {
		return nil, &DecodeError{
			Reply:  "chip info",
			Reason: fmt.Sprintf("expected %d bytes, got %d", ChipInfoLength, len(raw)),
		}
	}
	info := &ChipInfo{
		PageSize:   raw[3],
		FlashSize:  binary.BigEndian.Uint16(raw[4:6]),
		EepromSize: binary.BigEndian.Uint16(raw[6:8]),
	}
	copy(info.Signature[:], raw[0:3])
	if info.PageSize == 0 {
		return nil, &DecodeError{Reply: "chip info", Reason: "page size is zero"}
	}
	return info, nil
}

// ReadFlash reads n bytes of flash starting at address.
func (b *Bootloader) ReadFlash(address uint16, n int) ([]byte, error) {
	if err := b.bus.Write(b.addr, ReadFlashCommand(address)); err != nil {
		return nil, err
	}
	return b.bus.Read(b.addr, n)
}

// ReadEeprom reads n bytes of eeprom starting at address.
func (b *Bootloader) ReadEeprom(address uint16, n int) ([]byte, error) {
	if err := b.bus.Write(b.addr, ReadEepromCommand(address)); err != nil {
		return nil, err
	}
	return b.bus.Read(b.addr, n)
}

// WriteFlash writes one flash page at address, header and payload in a
// single transaction. The page must be exactly the device's page size;
// the device ignores anything shorter and this layer does not check.
func (b *Bootloader) WriteFlash(address uint16, page []byte) error {
	return b.bus.Write(b.addr, WriteFlashCommand(address, page))
}

// WriteEeprom writes data to eeprom at address.
func (b *Bootloader) WriteEeprom(address uint16, data []byte) error {
	return b.bus.Write(b.addr, WriteEepromCommand(address, data))
}
