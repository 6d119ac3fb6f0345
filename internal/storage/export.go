package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/modsim/internal/dynamo"
)

// WriteCSV writes one column per quantity, sorted by name, and one row per
// time point. Values are written with full precision.
func WriteCSV(w io.Writer, result dynamo.Result) error {
	cw := csv.NewWriter(w)

	cols := result.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := 0; i < result.Len(); i++ {
		for j, name := range cols {
			row[j] = strconv.FormatFloat(result[name][i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (dynamo.Result, error) {
	cr := csv.NewReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return dynamo.Result{}, nil
	}

	header := records[0]
	result := make(dynamo.Result, len(header))
	for _, name := range header {
		result[name] = make([]float64, 0, len(records)-1)
	}
	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i+1, header[j], err)
			}
			result[header[j]] = append(result[header[j]], v)
		}
	}
	return result, nil
}

type exportData struct {
	Metadata
	Result map[string][]Float `json:"result"`
}

// WriteJSON writes the metadata and columns of one run as a JSON document.
func WriteJSON(w io.Writer, meta Metadata, result dynamo.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData{Metadata: complete(meta, result), Result: jsonResult(result)})
}
