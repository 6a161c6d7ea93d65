package competency

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadOptions controls CSV tokenizing.
type ReadOptions struct {
	// Delimiter is a name (comma, semicolon, colon, tab) or a single
	// character. Empty means comma.
	Delimiter string
	// Encoding is a WHATWG label such as "utf-8" or "windows-1252". Empty
	// means UTF-8.
	Encoding string
}

// ParseDelimiter resolves a delimiter name to its rune.
func ParseDelimiter(name string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "comma", ",":
		return ',', nil
	case "semicolon", ";":
		return ';', nil
	case "colon", ":":
		return ':', nil
	case "tab", "\t", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unsupported delimiter %q", name)
}

// decodingReader converts r to UTF-8. A byte order mark, when present, picks
// the decoder and is dropped. Invalid sequences become U+FFFD.
func decodingReader(r io.Reader, label string) (io.Reader, error) {
	if strings.TrimSpace(label) == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// ReadCSV tokenizes an upload. The first non-empty row is returned as the
// header; the remaining non-empty rows are data. Any failure is reported as
// ErrInvalidImportFile.
func ReadCSV(r io.Reader, opts ReadOptions) (header []string, rows [][]string, err error) {
	delim, err := ParseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
	}
	decoded, err := decodingReader(r, opts.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
		}
		if isEmptyRow(rec) {
			continue
		}
		if header == nil {
			header = make([]string, len(rec))
			for i, h := range rec {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}
		rows = append(rows, rec)
	}

	if header == nil {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidImportFile)
	}
	return header, rows, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
