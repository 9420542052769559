package twiboot

// The twiboot bootloader answers on a fixed set of single-transaction
// commands. Byte layouts pulled from the twiboot firmware sources:
// https://github.com/orempel/twiboot

const (
	// DefaultAddress is the I2C slave address twiboot listens on unless
	// the firmware was built with a different one.
	DefaultAddress = 0x29

	commandSwitchMode = 0x01
	commandMemoryOp   = 0x02

	memtypeChipInfo = 0x00
	memtypeFlash    = 0x01
	memtypeEeprom   = 0x02

	bootModeApplication = 0x80

	// VersionLength is the fixed size of the version string reply.
	VersionLength = 16
	// ChipInfoLength is the fixed size of the chip info reply.
	ChipInfoLength = 8
)

// Produce the command that keeps the bootloader resident by aborting
// its automatic application start timeout
func AbortTimeoutCommand() []byte {
	return []byte{0x00}
}

// Produce the command that hands control to the application code
func StartApplicationCommand() []byte {
	return []byte{commandSwitchMode, bootModeApplication}
}

// Produce the command that makes the next read return the version string
func ReadVersionCommand() []byte {
	return []byte{commandSwitchMode}
}

// Produce the command that makes the next read return chip info
func ChipInfoCommand() []byte {
	return readMemoryCommand(memtypeChipInfo, 0)
}

// Produce the command that positions a read at the given flash address
func ReadFlashCommand(address uint16) []byte {
	return readMemoryCommand(memtypeFlash, address)
}

// Produce the command that positions a read at the given eeprom address
func ReadEepromCommand(address uint16) []byte {
	return readMemoryCommand(memtypeEeprom, address)
}

// Produce the full write transaction for one flash page at the given address.
// Header and payload must go out in a single transaction
func WriteFlashCommand(address uint16, page []byte) []byte {
	return append(readMemoryCommand(memtypeFlash, address), page...)
}

// Produce the full write transaction for eeprom data at the given address
func WriteEepromCommand(address uint16, data []byte) []byte {
	return append(readMemoryCommand(memtypeEeprom, address), data...)
}

func readMemoryCommand(memtype byte, address uint16) []byte {
	return []byte{commandMemoryOp, memtype, byte(address >> 8), byte(address & 0xFF)}
}
