// Package manifest imports shipment item lists from CSV and Excel files.
// Columns are recognised by case-insensitive header aliases; files without a
// header are read positionally.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

// Defaults applied when an optional column is absent or blank.
const (
	DefaultQuantity  = 1
	DefaultFragility = 0.5
	DefaultRotatable = true
)

// ErrNoItems is returned by Result.Err when nothing could be imported.
var ErrNoItems = errors.New("manifest contains no usable items")

// Result holds the items read from a manifest plus row-level problems.
type Result struct {
	Items    []packing.Item
	Errors   []string
	Warnings []string
}

// Err summarises the import outcome: nil when every row was usable.
func (r Result) Err() error {
	if len(r.Errors) > 0 {
		return fmt.Errorf("manifest has %d invalid row(s): %s", len(r.Errors), strings.Join(r.Errors, "; "))
	}
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	return nil
}

type column int

const (
	colLabel column = iota
	colLength
	colWidth
	colHeight
	colWeight
	colQuantity
	colFragility
	colRotatable
	numColumns
)

var columnNames = [numColumns]string{"label", "length", "width", "height", "weight", "quantity", "fragility", "rotatable"}

// headerAliases lists accepted header spellings per column (all lowercase).
var headerAliases = [numColumns][]string{
	colLabel:     {"label", "name", "item", "description", "desc", "product", "sku"},
	colLength:    {"length", "l", "len", "length_cm", "length (cm)"},
	colWidth:     {"width", "w", "width_cm", "width (cm)"},
	colHeight:    {"height", "h", "depth", "height_cm", "height (cm)"},
	colWeight:    {"weight", "wt", "mass", "kg", "weight_kg", "weight (kg)"},
	colQuantity:  {"quantity", "qty", "count", "pcs", "units", "amount"},
	colFragility: {"fragility", "fragile", "fragility_score"},
	colRotatable: {"rotatable", "is_rotatable", "rotate", "can_rotate"},
}

// ColumnMapping maps each column to its index in a row, or -1 when absent.
type ColumnMapping [numColumns]int

// DetectColumns examines a header row. It returns the mapping and true when
// the row is a header, or the positional mapping and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	var mapping ColumnMapping
	for i := range mapping {
		mapping[i] = -1
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for col, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias && mapping[col] == -1 {
					mapping[col] = i
					isHeader = true
				}
			}
		}
	}

	if !isHeader {
		for i := range mapping {
			mapping[i] = i
		}
		return mapping, false
	}
	return mapping, true
}

// DetectCSVDelimiter picks the delimiter among comma, semicolon, tab and
// pipe that yields the most consistent multi-column rows.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 || len(records[0]) < 2 {
			continue
		}
		score := 0
		for _, row := range records {
			if len(row) == len(records[0]) {
				score++
			}
		}
		if weighted := score*10 + len(records[0]); weighted > bestScore {
			best, bestScore = delim, weighted
		}
	}
	return best
}

// ImportFile imports a .csv, .txt or .xlsx manifest based on its extension.
func ImportFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt", ".tsv":
		return ImportCSV(f)
	case ".xlsx", ".xlsm":
		return ImportXLSX(f)
	default:
		return Result{}, fmt.Errorf("unsupported manifest format %q", ext)
	}
}

// ImportCSV reads a delimited manifest, detecting the delimiter.
func ImportCSV(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read manifest: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, ErrNoItems
	}

	var warnings []string
	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", name))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parse CSV: %w", err)
	}
	return importRows(records, "Line", warnings), nil
}

// ImportXLSX reads the first sheet of an Excel workbook.
func ImportXLSX(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, ErrNoItems
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return importRows(rows, "Row", nil), nil
}

func importRows(rows [][]string, rowPrefix string, warnings []string) Result {
	result := Result{Warnings: warnings}
	if len(rows) == 0 {
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
		var missing []string
		for _, col := range []column{colLength, colWidth, colHeight, colWeight} {
			if mapping[col] == -1 {
				missing = append(missing, columnNames[col])
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, "required columns not found in header: "+strings.Join(missing, ", "))
			return result
		}
	} else if len(rows[0]) > 1 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			start = 1
			result.Warnings = append(result.Warnings, "Unrecognised header row, using positional columns")
		}
	}

	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		label := fmt.Sprintf("%s %d", rowPrefix, i+1)
		item, err := parseRow(rows[i], mapping, len(result.Items))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func parseRow(row []string, mapping ColumnMapping, count int) (packing.Item, error) {
	item := packing.Item{
		Label:     cell(row, mapping[colLabel]),
		Quantity:  DefaultQuantity,
		Fragility: DefaultFragility,
		Rotatable: DefaultRotatable,
	}
	if item.Label == "" {
		item.Label = fmt.Sprintf("Item %d", count+1)
	}

	required := []struct {
		col column
		dst *float64
	}{
		{colLength, &item.Length},
		{colWidth, &item.Width},
		{colHeight, &item.Height},
		{colWeight, &item.Weight},
	}
	for _, r := range required {
		raw := cell(row, mapping[r.col])
		if raw == "" {
			return packing.Item{}, fmt.Errorf("missing %s", columnNames[r.col])
		}
		v, err := parseNumber(raw)
		if err != nil {
			return packing.Item{}, fmt.Errorf("invalid %s %q", columnNames[r.col], raw)
		}
		*r.dst = v
	}

	if raw := cell(row, mapping[colQuantity]); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return packing.Item{}, fmt.Errorf("invalid quantity %q", raw)
		}
		item.Quantity = q
	}

	if raw := cell(row, mapping[colFragility]); raw != "" {
		v, err := parseNumber(raw)
		if err != nil {
			return packing.Item{}, fmt.Errorf("invalid fragility %q", raw)
		}
		item.Fragility = v
	}

	if raw := cell(row, mapping[colRotatable]); raw != "" {
		v, ok := parseBool(raw)
		if !ok {
			return packing.Item{}, fmt.Errorf("invalid rotatable flag %q", raw)
		}
		item.Rotatable = v
	}

	if err := packing.ValidateItems([]packing.Item{item}); err != nil {
		var inputErr *packing.InputError
		if errors.As(err, &inputErr) {
			field := inputErr.Field
			if _, after, ok := strings.Cut(field, "."); ok {
				field = after
			}
			return packing.Item{}, fmt.Errorf("%s %s", field, inputErr.Reason)
		}
		return packing.Item{}, err
	}
	return item, nil
}

// parseNumber accepts a decimal comma as well as a decimal point.
func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1", "x":
		return true, true
	case "false", "no", "n", "0", "-":
		return false, true
	}
	return false, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
