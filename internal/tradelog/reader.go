package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// Read loads every valid record from the log at path, sorted by timestamp.
// A missing file yields an empty slice: the dashboard starts before the worker
// has logged anything. Rows that fail to parse are skipped, a mismatched
// header is an error.
func Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil // empty file
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("trade log header mismatch: %v", header)
	}

	var records []Record
	for {
		fields, err := cr.Read()
		if err != nil {
			break
		}
		rec, err := parseRecord(fields)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

func headerMatches(got []string) bool {
	if len(got) != len(Header) {
		return false
	}
	for i, col := range Header {
		if got[i] != col {
			return false
		}
	}
	return true
}
