package core

// dialect.go detects how a file is encoded and delimited.
//
// Encodings are tried in priority order. UTF-8 is accepted only when the
// bytes are strictly valid; single-byte charsets are rejected when decoding
// produces U+FFFD. A UTF-16 byte order mark overrides the list.
//
// The delimiter is chosen from a fixed candidate set by parsing a sample of
// lines with each candidate and keeping the one whose modal column count is
// shared by the most lines.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrUnparseableFile is the parent of every file-level failure. Callers
	// skip the file; no rows were produced.
	ErrUnparseableFile = errors.New("unparseable file")

	ErrEmptyFile   = fmt.Errorf("%w: empty file", ErrUnparseableFile)
	ErrNoDelimiter = fmt.Errorf("%w: invalid csv, no delimiter yields more than one column", ErrUnparseableFile)
	ErrEncoding    = fmt.Errorf("%w: encoding error, no candidate encoding decodes the file", ErrUnparseableFile)

	// ErrUnknownEncoding is returned by ValidateEncodings for a name the
	// IANA index does not know.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// DefaultDelimiters are the delimiter candidates, in tie-break order.
var DefaultDelimiters = []rune{',', ';', '\t', '|'}

// DefaultEncodings is the encoding fallback order.
var DefaultEncodings = []string{"utf-8", "windows-1252", "iso-8859-1"}

// DefaultSampleLines is how many non-empty lines delimiter detection reads.
const DefaultSampleLines = 20

// Dialect is the detected physical format of a file.
type Dialect struct {
	Delimiter rune
	Encoding  string
	BOM       BOM
}

// MarshalJSON renders the delimiter as a string.
func (d Dialect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Delimiter string `json:"delimiter"`
		Encoding  string `json:"encoding"`
		BOM       string `json:"bom"`
	}{string(d.Delimiter), d.Encoding, d.BOM.String()})
}

// UnmarshalJSON reverses MarshalJSON.
func (d *Dialect) UnmarshalJSON(b []byte) error {
	var v struct {
		Delimiter string `json:"delimiter"`
		Encoding  string `json:"encoding"`
		BOM       string `json:"bom"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	d.Delimiter, _ = utf8.DecodeRuneInString(v.Delimiter)
	if v.Delimiter == "" {
		d.Delimiter = 0
	}
	d.Encoding = v.Encoding
	d.BOM = BOMNone
	for _, bom := range []BOM{BOMUTF8, BOMUTF16LE, BOMUTF16BE} {
		if bom.String() == v.BOM {
			d.BOM = bom
		}
	}
	return nil
}

// DelimiterName returns a readable name for the delimiter.
func (d Dialect) DelimiterName() string {
	switch d.Delimiter {
	case '\t':
		return "tab"
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '|':
		return "pipe"
	}
	return string(d.Delimiter)
}

// ValidateEncodings checks that every name resolves to a known encoding.
func ValidateEncodings(names []string) error {
	for _, name := range names {
		if isUTF8Name(name) {
			continue
		}
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			return fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
	}
	return nil
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// decodeText converts file bytes (BOM already removed) to a string.
// It returns the text and the name of the encoding that decoded it.
func decodeText(data []byte, bom BOM, encodings []string) (string, string, error) {
	switch bom {
	case BOMUTF16LE, BOMUTF16BE:
		order := unicode.LittleEndian
		if bom == BOMUTF16BE {
			order = unicode.BigEndian
		}
		out, _, err := transform.Bytes(unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder(), data)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return string(out), bom.String(), nil
	}

	for _, name := range encodings {
		if isUTF8Name(name) {
			if utf8.Valid(data) {
				return string(data), "utf-8", nil
			}
			continue
		}

		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			continue
		}
		if text, ok := decodeSingleByte(enc, data); ok {
			return text, encodingName(enc, name), nil
		}
	}

	return "", "", ErrEncoding
}

// decodeSingleByte decodes data with enc. The result is rejected when the
// decoder emitted U+FFFD for a byte the charset does not define.
func decodeSingleByte(enc encoding.Encoding, data []byte) (string, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func encodingName(enc encoding.Encoding, fallback string) string {
	if name, err := ianaindex.IANA.Name(enc); err == nil && name != "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(fallback)
}

// sampleLines returns up to n non-empty lines from the start of text.
func sampleLines(text string, n int) []string {
	var out []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) >= n {
			break
		}
	}
	return out
}

// delimiterScore is the result of parsing a sample with one candidate.
type delimiterScore struct {
	delim     rune
	mode      int // most common column count
	agreement int // sample lines with exactly mode columns
}

// DetectDelimiter picks the candidate that splits the most sample lines into
// the same number of columns. Ties prefer the wider split, then candidate
// order. Returns ErrNoDelimiter when no candidate yields more than one
// column.
func DetectDelimiter(sample []string, candidates []rune) (rune, error) {
	if len(sample) == 0 {
		return 0, ErrEmptyFile
	}
	if len(candidates) == 0 {
		candidates = DefaultDelimiters
	}

	var best *delimiterScore
	for _, c := range candidates {
		s := scoreDelimiter(sample, c)
		if s.mode < 2 {
			continue
		}
		if best == nil || s.agreement > best.agreement ||
			(s.agreement == best.agreement && s.mode > best.mode) {
			best = &s
		}
	}

	if best == nil {
		return 0, ErrNoDelimiter
	}
	return best.delim, nil
}

func scoreDelimiter(sample []string, delim rune) delimiterScore {
	counts := make(map[int]int)
	for _, line := range sample {
		counts[fieldCount(line, delim)]++
	}

	s := delimiterScore{delim: delim}
	for width, n := range counts {
		if n > s.agreement || (n == s.agreement && width > s.mode) {
			s.mode, s.agreement = width, n
		}
	}
	return s
}

func fieldCount(line string, delim rune) int {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return 0
	}
	return len(rec)
}

// DetectDialect decodes data and detects its delimiter. The BOM must already
// have been removed and reported in bom.
func DetectDialect(data []byte, bom BOM, opts Options) (Dialect, string, error) {
	opts = opts.withDefaults()

	if len(bytes.TrimSpace(data)) == 0 {
		return Dialect{}, "", ErrEmptyFile
	}

	text, encName, err := decodeText(data, bom, opts.Encodings)
	if err != nil {
		return Dialect{}, "", err
	}

	sample := sampleLines(text, opts.SampleLines)
	delim, err := DetectDelimiter(sample, opts.Delimiters)
	if err != nil {
		return Dialect{}, "", err
	}

	return Dialect{Delimiter: delim, Encoding: encName, BOM: bom}, text, nil
}
