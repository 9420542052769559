package twiboot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// In-memory stand-in for a twiboot device hanging off the bus. Behaves
// like the real thing: a command write positions the device, the next
// read answers it, memory writes land in the backing slices.
type fakeDevice struct {
	pageSize uint8
	version  string
	flash    []byte
	eeprom   []byte

	lastCmd      []byte
	pageWrites   map[int]int
	corruptReads bool
	writeErr     error
}

func newFakeDevice(pageSize uint8, flashSize, eepromSize int) *fakeDevice {
	return &fakeDevice{
		pageSize:   pageSize,
		version:    "TWIBOOT v3.2",
		flash:      MakePadding(flashSize),
		eeprom:     MakePadding(eepromSize),
		pageWrites: make(map[int]int),
	}
}

func (d *fakeDevice) chipInfoReply() []byte {
	raw := []byte{0x1E, 0x95, 0x0F, d.pageSize, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(raw[4:6], uint16(len(d.flash)))
	binary.BigEndian.PutUint16(raw[6:8], uint16(len(d.eeprom)))
	return raw
}

func (d *fakeDevice) Write(addr uint8, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty transaction")
	}
	d.lastCmd = data
	if data[0] == commandMemoryOp && len(data) > 4 {
		if d.writeErr != nil {
			return d.writeErr
		}
		address := int(data[2])<<8 | int(data[3])
		payload := data[4:]
		switch data[1] {
		case memtypeFlash:
			copy(d.flash[address:], payload)
			d.pageWrites[address]++
		case memtypeEeprom:
			copy(d.eeprom[address:], payload)
		}
	}
	return nil
}

func (d *fakeDevice) Read(addr uint8, n int) ([]byte, error) {
	cmd := d.lastCmd
	if len(cmd) == 0 {
		return nil, errors.New("read with no preceding command")
	}
	if cmd[0] == commandSwitchMode && len(cmd) == 1 {
		reply := make([]byte, n)
		copy(reply, d.version)
		return reply, nil
	}
	if cmd[0] != commandMemoryOp || len(cmd) != 4 {
		return nil, fmt.Errorf("read after unexpected command %#02x", cmd[0])
	}
	address := int(cmd[2])<<8 | int(cmd[3])
	var memory []byte
	switch cmd[1] {
	case memtypeChipInfo:
		memory = d.chipInfoReply()
	case memtypeFlash:
		memory = d.flash
	case memtypeEeprom:
		memory = d.eeprom
	default:
		return nil, fmt.Errorf("read of unknown memtype %#02x", cmd[1])
	}
	if address+n > len(memory) {
		return nil, fmt.Errorf("read past end of memory: %d+%d > %d", address, n, len(memory))
	}
	reply := make([]byte, n)
	copy(reply, memory[address:])
	if d.corruptReads && cmd[1] == memtypeFlash {
		reply[0] ^= 0xFF
	}
	return reply, nil
}

// recordBus captures every transaction verbatim and replays scripted replies.
type recordBus struct {
	writes  [][]byte
	replies [][]byte
}

func (b *recordBus) Write(addr uint8, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	b.writes = append(b.writes, stored)
	return nil
}

func (b *recordBus) Read(addr uint8, n int) ([]byte, error) {
	if len(b.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := b.replies[0]
	b.replies = b.replies[1:]
	return reply, nil
}
