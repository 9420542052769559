package twiboot

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"
)

const (
	// DefaultRetries is how many schedule entries each page gets before
	// the whole write is declared failed.
	DefaultRetries = 10
	// DefaultBaseDelay is the nominal settle time between a flash
	// transaction and the next one.
	DefaultBaseDelay = 20 * time.Millisecond
)

const (
	StageWrite  = "write"
	StageVerify = "verify"
)

// Progress reports that the given 1-based page is starting the given
// stage. Observational only; the write proceeds the same with or
// without a listener.
type Progress struct {
	Stage string
	Page  int
	Total int
}

type ProgressFunc func(Progress)

// RetrySchedule builds n delays log-spaced (base 10) from base up to
// 100x base, floored at one second. The schedule is consumed in order
// per page, so each failed attempt waits longer than the one before.
func RetrySchedule(base time.Duration, n int) []time.Duration {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if n < 1 {
		n = DefaultRetries
	}
	max := 100 * base
	if max < time.Second {
		max = time.Second
	}
	schedule := make([]time.Duration, n)
	lo := math.Log10(base.Seconds())
	hi := math.Log10(max.Seconds())
	for i := range schedule {
		exponent := lo
		if n > 1 {
			exponent = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		schedule[i] = time.Duration(math.Pow(10, exponent) * float64(time.Second))
	}
	// Pin the endpoints so float rounding can't shave them
	schedule[0] = base
	schedule[n-1] = max
	return schedule
}

// WriteOptions tune a firmware write. The zero value is not useful;
// start from DefaultWriteOptions.
type WriteOptions struct {
	Verify    bool
	BaseDelay time.Duration
	Retries   int
	Progress  ProgressFunc
}

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Verify:    true,
		BaseDelay: DefaultBaseDelay,
		Retries:   DefaultRetries,
	}
}

// WriteFirmware flashes an Intel HEX image from reader onto the device:
// query the chip geometry, split the image into pages, then write each
// page in ascending order. With Verify set, every page is read back and
// compared byte for byte; a page that doesn't match is rewritten with
// the next (longer) delay from the retry schedule. A page that exhausts
// the schedule fails the whole operation with a VerifyError naming it,
// and no later page is attempted, so flash may be left partially
// written. Bus-level failures are not retried; they abort immediately.
func WriteFirmware(bl *Bootloader, reader io.Reader, options WriteOptions) error {
	info, err := bl.ReadChipInfo()
	if err != nil {
		return fmt.Errorf("read chip info: %w", err)
	}
	pages, err := LoadHexPages(reader, int(info.PageSize))
	if err != nil {
		return err
	}
	return writePages(bl, info, pages, options)
}

// WriteFirmwareFile is WriteFirmware reading from the given path.
func WriteFirmwareFile(bl *Bootloader, path string, options WriteOptions) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open firmware '%s': %w", path, err)
	}
	defer file.Close()
	return WriteFirmware(bl, file, options)
}

func writePages(bl *Bootloader, info *ChipInfo, pages [][]byte, options WriteOptions) error {
	schedule := RetrySchedule(options.BaseDelay, options.Retries)
	report := options.Progress
	if report == nil {
		report = func(p Progress) {
			log.Printf("%s page: %4d/%d\n", p.Stage, p.Page, p.Total)
		}
	}
	pageSize := int(info.PageSize)
	for i, page := range pages {
		address := uint16(i * pageSize)
		verified := false
		for _, delay := range schedule {
			report(Progress{Stage: StageWrite, Page: i + 1, Total: len(pages)})
			if err := bl.WriteFlash(address, page); err != nil {
				return fmt.Errorf("write page %d: %w", i, err)
			}
			// Give the bootloader time to finish the physical write
			time.Sleep(delay)

			if !options.Verify {
				verified = true
				break
			}
			report(Progress{Stage: StageVerify, Page: i + 1, Total: len(pages)})
			readback, err := bl.ReadFlash(address, pageSize)
			if err != nil {
				return fmt.Errorf("verify page %d: %w", i, err)
			}
			time.Sleep(delay)
			if bytes.Equal(readback, page) {
				verified = true
				break
			}
			// Mismatch (content or length): burn this schedule entry
			// and rewrite the page with a longer settle delay
		}
		if !verified {
			return &VerifyError{Page: i, Attempts: len(schedule)}
		}
	}
	return nil
}

// DumpFlash reads length bytes of flash in page-size chunks, with a
// short settle delay between transactions. A length of zero (or one
// past the flash size) dumps the whole flash.
func DumpFlash(bl *Bootloader, length int, delay time.Duration) ([]byte, error) {
	info, err := bl.ReadChipInfo()
	if err != nil {
		return nil, fmt.Errorf("read chip info: %w", err)
	}
	if length <= 0 || length > int(info.FlashSize) {
		length = int(info.FlashSize)
	}
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	result := make([]byte, 0, length)
	step := int(info.PageSize)
	for offset := 0; offset < length; offset += step {
		n := step
		if length-offset < n {
			n = length - offset
		}
		chunk, err := bl.ReadFlash(uint16(offset), n)
		if err != nil {
			return nil, fmt.Errorf("read flash at %#04x: %w", offset, err)
		}
		result = append(result, chunk...)
		time.Sleep(delay)
	}
	return result, nil
}
