package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"mcsim/domain/kernel"
	"mcsim/domain/run"
)

// ReadModel reads a model workbook into a request. Keys missing from the
// Model sheet keep the values of base.
func ReadModel(path string, base run.Request) (*run.Request, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	req := base
	modelRows, err := f.GetRows(SheetModel, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", SheetModel, err)
	}
	if err := applyModelRows(&req, modelRows); err != nil {
		return nil, err
	}

	inputRows, err := f.GetRows(SheetInputs, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", SheetInputs, err)
	}
	if req.Inputs, err = parseInputs(inputRows); err != nil {
		return nil, err
	}

	log.Printf("[ExcelReader] %s: model %q with %d inputs", filepath.Base(path), req.Name, len(req.Inputs))
	return &req, nil
}

// ReadInputs reads input declarations from a .csv file, a .json document
// (request, stored result or bare array) or the Inputs sheet of an .xlsx file.
func ReadInputs(path string) ([]run.InputDecl, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readInputsJSON(path)
	case ".csv":
	default:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(SheetInputs, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", SheetInputs, err)
		}
		return parseInputs(rows)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return parseInputs(rows)
}

func applyModelRows(req *run.Request, rows [][]string) error {
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		value := strings.TrimSpace(row[1])
		if value == "" {
			continue
		}

		var err error
		switch key {
		case KeyName:
			req.Name = value
		case KeyFormula:
			req.Formula = value
		case KeyLanes:
			req.Lanes, err = strconv.Atoi(value)
		case KeyTrialsPerLane:
			req.TrialsPerLane, err = strconv.Atoi(value)
		case KeySeed:
			req.Seed, err = strconv.ParseInt(value, 10, 64)
		case KeyHistogramBins:
			req.HistogramBins, err = strconv.Atoi(value)
		}
		if err != nil {
			return fmt.Errorf("%s!B%d (%s): %w", SheetModel, i+1, key, err)
		}
	}
	return nil
}

func parseInputs(rows [][]string) ([]run.InputDecl, error) {
	data := processRows(rows)
	if data == nil {
		return nil, nil
	}

	decls := make([]run.InputDecl, 0, len(data.Rows))
	for i, row := range data.Rows {
		if row["name"] == "" {
			continue
		}
		decl, err := parseInputRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetInputs, i+2, err)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func parseInputRow(row RawRowData) (run.InputDecl, error) {
	family, err := kernel.ParseFamily(row["family"])
	if err != nil {
		return run.InputDecl{}, err
	}
	var params [3]float32
	for i, key := range inputHeaders[2:] {
		v := row[key]
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return run.InputDecl{}, fmt.Errorf("%s: %w", key, err)
		}
		params[i] = float32(f)
	}
	return run.InputDecl{
		Name:   row["name"],
		Family: family,
		Params: kernel.DistributionSpec{Param1: params[0], Param2: params[1], Param3: params[2]},
	}, nil
}

// processRows converts raw string rows into SheetData; headers are matched
// case-insensitively.
func processRows(rows [][]string) *SheetData {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	data := &SheetData{Headers: headers}
	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data.Rows = append(data.Rows, rowData)
	}
	return data
}
