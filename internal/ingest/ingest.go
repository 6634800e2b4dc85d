// Package ingest reads the two NASA source files feeding the catalog: the
// small-body CSV of NEO records and the close-approach JSON feed. Loaders
// return unlinked records; linking happens when the database is built.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"neocore/pkg/domain"
)

// Column names consumed from the NEO CSV. The file carries dozens of other
// columns; everything else is ignored.
const (
	colDesignation = "pdes"
	colName        = "name"
	colDiameter    = "diameter"
	colHazardous   = "pha"
)

// LoadNEOs reads NEO records from the CSV file at path, one per row, in file
// order. Missing or blank fields degrade to the record defaults rather than
// failing; only I/O and CSV structure errors are returned.
func LoadNEOs(path string) ([]*domain.NearEarthObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open neo csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadNEOs(f)
}

// ReadNEOs parses NEO records from CSV content.
func ReadNEOs(r io.Reader) ([]*domain.NearEarthObject, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read neo header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, col := range []string{colDesignation, colName, colDiameter, colHazardous} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("neo csv missing column %q", col)
		}
	}

	var neos []*domain.NearEarthObject
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read neo row: %w", err)
		}
		neos = append(neos, domain.NewNearEarthObject(
			row[idx[colDesignation]],
			row[idx[colName]],
			row[idx[colDiameter]],
			row[idx[colHazardous]] == "Y",
		))
	}
	return neos, nil
}

// approachFeed mirrors the close-approach JSON document: a data array whose
// entries are fixed-position arrays. Positions 0, 3, 4, 7 carry designation,
// time, distance, velocity.
type approachFeed struct {
	Data [][]json.RawMessage `json:"data"`
}

const (
	posDesignation = 0
	posTime        = 3
	posDistance    = 4
	posVelocity    = 7
)

// LoadApproaches reads close-approach records from the JSON file at path, one
// per data entry, in file order.
func LoadApproaches(path string) ([]*domain.CloseApproach, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open approach json: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadApproaches(f)
}

// ReadApproaches parses close-approach records from JSON content.
func ReadApproaches(r io.Reader) ([]*domain.CloseApproach, error) {
	var feed approachFeed
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode approach json: %w", err)
	}
	approaches := make([]*domain.CloseApproach, 0, len(feed.Data))
	for i, entry := range feed.Data {
		if len(entry) <= posVelocity {
			return nil, fmt.Errorf("approach entry %d: %d fields, want at least %d",
				i, len(entry), posVelocity+1)
		}
		approaches = append(approaches, domain.NewCloseApproach(
			fieldString(entry[posDesignation]),
			fieldString(entry[posTime]),
			fieldString(entry[posDistance]),
			fieldString(entry[posVelocity]),
		))
	}
	return approaches, nil
}

// fieldString renders a feed value as its textual form. The feed nominally
// carries strings, but numbers and nulls appear in the wild; numbers keep
// their literal text, null becomes empty.
func fieldString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
