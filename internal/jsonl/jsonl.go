// Package jsonl reads and writes JSON Lines files. Writes are atomic: the
// file is written to a temp file in the same directory, fsynced, and renamed
// over the target.
package jsonl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// codec matches encoding/json field handling so struct tags behave the same.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes v as one JSON line (without the newline).
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes one JSON line into v.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// ReadLines returns each non-empty, valid JSON line of the file at path.
// Malformed lines are skipped. A missing file yields no records.
func ReadLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !codec.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, cp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// WriteLines atomically replaces the file at path with records, one per
// line, using the temp-file, fsync, rename pattern.
func WriteLines(path string, records [][]byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadAll decodes every record of the file at path into a T. Lines that do
// not decode into T are skipped.
func ReadAll[T any](path string) ([]T, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(lines))
	for _, line := range lines {
		var item T
		if err := Unmarshal(line, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// WriteAll encodes items and atomically replaces the file at path.
func WriteAll[T any](path string, items []T) error {
	records := make([][]byte, 0, len(items))
	for _, item := range items {
		data, err := Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		records = append(records, data)
	}
	return WriteLines(path, records)
}

// Touch creates an empty file at path if none exists.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return f.Close()
}
