package twiboot

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"
)

// MakePadding returns length bytes of 0xFF, the erased-flash filler.
func MakePadding(length int) []byte {
	return bytes.Repeat([]byte{0xFF}, length)
}

// LoadHex flattens the data records of an Intel HEX image into one
// contiguous byte stream, in record order. Non-data records (end of file,
// extended addresses) only steer the parser and contribute no bytes.
func LoadHex(reader io.Reader) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(reader); err != nil {
		return nil, fmt.Errorf("parse intel hex: %w", err)
	}
	var data []byte
	for _, segment := range mem.GetDataSegments() {
		data = append(data, segment.Data...)
	}
	return data, nil
}

// SplitPages chunks data into pages of exactly pageSize bytes, padding
// the tail of the last page with 0xFF. Concatenating the result and
// truncating to len(data) gives back data unchanged.
func SplitPages(data []byte, pageSize int) ([][]byte, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}
	pages := make([][]byte, 0, (len(data)+pageSize-1)/pageSize)
	for start := 0; start < len(data); start += pageSize {
		page := MakePadding(pageSize)
		copy(page, data[start:])
		pages = append(pages, page)
	}
	return pages, nil
}

// LoadHexPages parses an Intel HEX image and splits it into device pages.
func LoadHexPages(reader io.Reader, pageSize int) ([][]byte, error) {
	data, err := LoadHex(reader)
	if err != nil {
		return nil, err
	}
	return SplitPages(data, pageSize)
}

// LoadHexFilePages reads an Intel HEX file and splits it into device pages.
func LoadHexFilePages(path string, pageSize int) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open firmware '%s': %w", path, err)
	}
	defer file.Close()
	pages, err := LoadHexPages(file, pageSize)
	if err != nil {
		return nil, fmt.Errorf("load firmware '%s': %w", path, err)
	}
	return pages, nil
}
