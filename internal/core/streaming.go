package core

// streaming.go provides io.Reader wrappers applied before a file is decoded:
//
//   - BOMReader: removes a UTF-8 or UTF-16 byte order mark and reports which
//     one it saw, so decoding can pick the right charset
//   - SizeLimitReader: fails with ErrFileTooLarge once a byte limit is passed

import (
	"errors"
	"io"
)

// ErrFileTooLarge is returned when an input exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// BOM identifies a byte order mark found at the start of a file.
type BOM int

const (
	BOMNone BOM = iota
	BOMUTF8
	BOMUTF16LE
	BOMUTF16BE
)

func (b BOM) String() string {
	switch b {
	case BOMUTF8:
		return "utf-8"
	case BOMUTF16LE:
		return "utf-16le"
	case BOMUTF16BE:
		return "utf-16be"
	default:
		return "none"
	}
}

// sniffBOM reports the BOM at the start of b and its length in bytes.
func sniffBOM(b []byte) (BOM, int) {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return BOMUTF8, 3
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return BOMUTF16LE, 2
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return BOMUTF16BE, 2
	}
	return BOMNone, 0
}

// BOMReader wraps an io.Reader and skips a leading byte order mark.
// BOM is only meaningful after the first Read.
type BOMReader struct {
	reader  io.Reader
	checked bool
	eof     bool
	buf     [3]byte
	pending []byte
	bom     BOM
}

// NewBOMReader creates a new BOM-skipping reader.
func NewBOMReader(r io.Reader) *BOMReader {
	return &BOMReader{reader: r}
}

// BOM returns the byte order mark that was skipped.
func (r *BOMReader) BOM() BOM {
	return r.bom
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			r.eof = true
		case err != nil:
			return 0, err
		}

		bom, skip := sniffBOM(r.buf[:n])
		r.bom = bom
		r.pending = r.buf[skip:n]
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	if r.eof {
		return 0, io.EOF
	}
	return r.reader.Read(p)
}

// SizeLimitReader wraps an io.Reader and tracks bytes read. A limit of zero
// or less disables the check.
type SizeLimitReader struct {
	reader    io.Reader
	limit     int64
	BytesRead int64
}

// NewSizeLimitReader creates a reader that fails after limit bytes.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, limit: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.limit > 0 && r.BytesRead > r.limit {
		return n, ErrFileTooLarge
	}
	return n, err
}
