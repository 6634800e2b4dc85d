// Package export renders query results to the two supported output formats
// and runs asynchronous export jobs that persist the rendered artifacts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"neocore/pkg/domain"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// ParseFormat resolves a format name, accepting only csv and json.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// CSVHeader is the fixed column set of CSV exports. Downstream consumers
// parse by name, so the order and spelling never change.
var CSVHeader = []string{
	"datetime_utc",
	"distance_au",
	"velocity_km_s",
	"designation",
	"name",
	"diameter_km",
	"potentially_hazardous",
}

// WriteCSV emits one header row plus one row per approach. A missing name
// renders as the empty string, an unknown diameter as the empty string, and
// the hazardous flag as "True" or "False". Approaches without a linked NEO
// leave all NEO columns empty and hazardous "False".
func WriteCSV(w io.Writer, approaches []*domain.CloseApproach) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, a := range approaches {
		var name, diameter string
		var hazardous bool
		designation := a.Designation
		if a.NEO != nil {
			designation = a.NEO.Designation
			if n, ok := a.NEO.NamedAs(); ok {
				name = n
			}
			if a.NEO.Diameter.Known() {
				diameter = formatFloat(float64(a.NEO.Diameter))
			}
			hazardous = a.NEO.Hazardous
		}
		row := []string{
			a.TimeStr(),
			formatFloat(a.Distance),
			formatFloat(a.Velocity),
			designation,
			name,
			diameter,
			formatBool(hazardous),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatBool renders the hazardous flag with a leading capital; round-trip
// consumers match "True" and "False" exactly.
func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type approachJSON struct {
	DatetimeUTC string   `json:"datetime_utc"`
	DistanceAU  float64  `json:"distance_au"`
	VelocityKMS float64  `json:"velocity_km_s"`
	NEO         *neoJSON `json:"neo"`
}

type neoJSON struct {
	Designation string          `json:"designation"`
	Name        *string         `json:"name"`
	DiameterKM  domain.Diameter `json:"diameter_km"`
	Hazardous   bool            `json:"potentially_hazardous"`
}

// WriteJSON emits an array of objects, each carrying the approach fields plus
// a nested neo object. Unknown diameters encode as null, missing names as
// null, and an unlinked approach carries a null neo.
func WriteJSON(w io.Writer, approaches []*domain.CloseApproach) error {
	out := make([]approachJSON, 0, len(approaches))
	for _, a := range approaches {
		entry := approachJSON{
			DatetimeUTC: a.TimeStr(),
			DistanceAU:  a.Distance,
			VelocityKMS: a.Velocity,
		}
		if a.NEO != nil {
			entry.NEO = &neoJSON{
				Designation: a.NEO.Designation,
				Name:        a.NEO.Name,
				DiameterKM:  a.NEO.Diameter,
				Hazardous:   a.NEO.Hazardous,
			}
		}
		out = append(out, entry)
	}
	return json.NewEncoder(w).Encode(out)
}

// Write renders approaches in the requested format.
func Write(w io.Writer, format Format, approaches []*domain.CloseApproach) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, approaches)
	case FormatJSON:
		return WriteJSON(w, approaches)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
