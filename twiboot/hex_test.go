package twiboot

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
)

// Build one Intel HEX data record with a valid checksum
func hexRecord(address uint16, data []byte) string {
	sum := byte(len(data)) + byte(address>>8) + byte(address)
	for _, b := range data {
		sum += b
	}
	return fmt.Sprintf(":%02X%04X00%s%02X\n", len(data), address,
		strings.ToUpper(hex.EncodeToString(data)), byte(-sum))
}

func buildHexImage(data []byte) string {
	var sb strings.Builder
	for start := 0; start < len(data); start += 16 {
		end := start + 16
		if end > len(data) {
			end = len(data)
		}
		sb.WriteString(hexRecord(uint16(start), data[start:end]))
	}
	sb.WriteString(":00000001FF\n")
	return sb.String()
}

func testSplitReconstruct(length int, pageSize int, t *testing.T) {
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(i * 7)
	}
	pages, err := SplitPages(data, pageSize)
	if err != nil {
		t.Fatalf("len %d page %d: split failed: %s", length, pageSize, err)
	}
	var flat []byte
	for _, page := range pages {
		if len(page) != pageSize {
			t.Fatalf("len %d page %d: page of length %d", length, pageSize, len(page))
		}
		flat = append(flat, page...)
	}
	if !bytes.Equal(flat[:length], data) {
		t.Fatalf("len %d page %d: reconstruction mismatch", length, pageSize)
	}
	for _, pad := range flat[length:] {
		if pad != 0xFF {
			t.Fatalf("len %d page %d: padding byte %#02x", length, pageSize, pad)
		}
	}
}

func TestSplitPagesReconstruct(t *testing.T) {
	testSplitReconstruct(0, 128, t)
	testSplitReconstruct(1, 128, t)
	testSplitReconstruct(127, 128, t)
	testSplitReconstruct(128, 128, t)
	testSplitReconstruct(129, 128, t)
	testSplitReconstruct(1000, 128, t)
	testSplitReconstruct(1000, 1, t)
	testSplitReconstruct(13, 5, t)
}

func TestSplitPagesRejectsBadPageSize(t *testing.T) {
	if _, err := SplitPages([]byte{1, 2, 3}, 0); err == nil {
		t.Fatal("Expected error for page size 0")
	}
	if _, err := SplitPages([]byte{1, 2, 3}, -4); err == nil {
		t.Fatal("Expected error for negative page size")
	}
}

func TestLoadHexPages(t *testing.T) {
	data := make([]byte, 50)
	for i := range data {
		data[i] = byte(i + 1)
	}
	pages, err := LoadHexPages(strings.NewReader(buildHexImage(data)), 16)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if len(pages) != 4 {
		t.Fatalf("Expected 4 pages, got %d", len(pages))
	}
	if !bytes.Equal(pages[0], data[:16]) {
		t.Fatalf("First page mismatch: % X", pages[0])
	}
	last := pages[3]
	if !bytes.Equal(last[:2], data[48:]) {
		t.Fatalf("Last page data mismatch: % X", last[:2])
	}
	for _, pad := range last[2:] {
		if pad != 0xFF {
			t.Fatalf("Last page not padded with 0xFF: % X", last)
		}
	}
}

func TestLoadHexBadInput(t *testing.T) {
	if _, err := LoadHex(strings.NewReader(":00000001AA\n")); err == nil {
		t.Fatal("Expected error for corrupt hex input")
	}
}

func TestLoadHexFilePagesMissing(t *testing.T) {
	_, err := LoadHexFilePages("this_file_does_not_exist.hex", 128)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "this_file_does_not_exist.hex") {
		t.Fatalf("Error does not name the failing path: %s", err)
	}
}
