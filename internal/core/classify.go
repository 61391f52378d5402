package core

// classify.go separates expected noise from real parse failures.
//
// Exports copied off removable media or network shares arrive mixed with
// files that were never timing data: AppleDouble resource forks (._name),
// Finder and Explorer metadata, zero-byte placeholders, and binary files
// that happen to carry a .csv name. These are classified before parsing so
// they can be skipped without being reported as failed imports. A file that
// passes classification and then fails to normalize is a real failure.

import (
	"bytes"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrMetadataFile is returned for operating-system metadata files.
	ErrMetadataFile = errors.New("os metadata file")

	// ErrNotText is returned when content sniffing finds a binary file.
	ErrNotText = errors.New("not a delimited text file")
)

// Class is the pre-parse classification of a file.
type Class string

const (
	ClassCandidate Class = "candidate" // text that should normalize
	ClassMetadata  Class = "metadata"  // OS metadata, skip silently
	ClassEmpty     Class = "empty"     // zero bytes
	ClassBinary    Class = "binary"    // not text
)

// Noise reports whether the class is an expected skip rather than a failure.
func (c Class) Noise() bool {
	return c != ClassCandidate
}

// Err returns the error a caller reports for a noise class, nil for a
// candidate.
func (c Class) Err() error {
	switch c {
	case ClassMetadata:
		return ErrMetadataFile
	case ClassEmpty:
		return ErrEmptyFile
	case ClassBinary:
		return ErrNotText
	}
	return nil
}

// appleDoubleMagic starts every AppleDouble resource fork.
var appleDoubleMagic = []byte{0x00, 0x05, 0x16, 0x07}

var metadataNames = map[string]bool{
	".ds_store":   true,
	"thumbs.db":   true,
	"desktop.ini": true,
	".localized":  true,
	"icon\r":      true,
}

// Classify applies the rules in order: metadata name, zero bytes, AppleDouble
// magic, then content sniffing. Only the first 3 KiB of data is inspected by
// the sniffer.
func Classify(name string, data []byte) Class {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if strings.HasPrefix(base, "._") || metadataNames[base] {
		return ClassMetadata
	}
	if len(data) == 0 {
		return ClassEmpty
	}
	if bytes.HasPrefix(data, appleDoubleMagic) {
		return ClassMetadata
	}
	if !isText(data) {
		return ClassBinary
	}
	return ClassCandidate
}

// isText reports whether mimetype places the content under text/plain.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// DetectMIME returns the sniffed content type, without parameters.
func DetectMIME(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// Outcome is the final disposition of one file.
type Outcome string

const (
	OutcomeNormalized Outcome = "normalized"
	OutcomeSkipped    Outcome = "skipped" // noise
	OutcomeFailed     Outcome = "failed"  // candidate that did not normalize
)

// OutcomeOf combines a classification with the normalization error.
func OutcomeOf(c Class, err error) Outcome {
	switch {
	case c.Noise():
		return OutcomeSkipped
	case err != nil:
		return OutcomeFailed
	}
	return OutcomeNormalized
}
