// Package csvfile reads and writes the hand-maintained CSV files the verifier
// works from. Reading tolerates a UTF-8 BOM, Windows-1252 text, and semicolon
// delimiters; writing always produces BOM-prefixed, comma-separated UTF-8.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed CSV file.
type Table struct {
	Header  []string
	Records [][]string
}

// Read loads path. A missing file is reported with an error satisfying
// errors.Is(err, fs.ErrNotExist). An empty file yields an empty table.
func Read(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return Parse(text)
}

// Parse reads CSV text whose delimiter is sniffed from the first line.
func Parse(text string) (*Table, error) {
	if strings.TrimSpace(text) == "" {
		return &Table{}, nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = Delimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// Delimiter returns ',' if the first line contains one, otherwise ';'.
func Delimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if strings.ContainsRune(first, ',') {
		return ','
	}
	return ';'
}

// Write atomically replaces path with header and records.
func Write(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeTo(tmp, header, records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeTo(w io.Writer, header []string, records [][]string) error {
	if _, err := w.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// FindColumn returns the index of the first header containing any of needles,
// compared case-insensitively, or -1.
func FindColumn(header []string, needles ...string) int {
	for i, h := range header {
		lh := strings.ToLower(h)
		for _, n := range needles {
			if strings.Contains(lh, strings.ToLower(n)) {
				return i
			}
		}
	}
	return -1
}

// Field returns rec[i] trimmed, or "" when i is out of range.
func Field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, bom)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
