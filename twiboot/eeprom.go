package twiboot

import (
	"fmt"
	"time"
)

// DumpEeprom reads the entire eeprom in page-size chunks.
func DumpEeprom(bl *Bootloader, delay time.Duration) ([]byte, error) {
	info, err := bl.ReadChipInfo()
	if err != nil {
		return nil, fmt.Errorf("read chip info: %w", err)
	}
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	length := int(info.EepromSize)
	step := int(info.PageSize)
	result := make([]byte, 0, length)
	for offset := 0; offset < length; offset += step {
		n := step
		if length-offset < n {
			n = length - offset
		}
		chunk, err := bl.ReadEeprom(uint16(offset), n)
		if err != nil {
			return nil, fmt.Errorf("read eeprom at %#04x: %w", offset, err)
		}
		result = append(result, chunk...)
		time.Sleep(delay)
	}
	return result, nil
}

// RestoreEeprom writes a full eeprom image back to the device. The data
// must be exactly the eeprom size reported by the chip.
func RestoreEeprom(bl *Bootloader, data []byte, delay time.Duration) error {
	info, err := bl.ReadChipInfo()
	if err != nil {
		return fmt.Errorf("read chip info: %w", err)
	}
	if len(data) != int(info.EepromSize) {
		return fmt.Errorf("wrong data size for eeprom: expected %d, got %d",
			info.EepromSize, len(data))
	}
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	step := int(info.PageSize)
	for offset := 0; offset < len(data); offset += step {
		end := offset + step
		if end > len(data) {
			end = len(data)
		}
		if err := bl.WriteEeprom(uint16(offset), data[offset:end]); err != nil {
			return fmt.Errorf("write eeprom at %#04x: %w", offset, err)
		}
		// Eeprom cells are slow; let the write land before the next one
		time.Sleep(delay)
	}
	return nil
}
