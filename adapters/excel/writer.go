package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"mcsim/domain/run"
)

// WriteResult writes a run to a workbook. The Model and Inputs sheets use
// the layout ReadModel expects, so the file can be fed back in as a model.
func WriteResult(path string, result *run.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetHistogram, SheetModel, SheetInputs} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", name, err)
		}
	}

	writers := []func(*excelize.File, *run.Result) error{
		writeSummary, writeHistogram, writeModel, writeInputs,
	}
	for _, write := range writers {
		if err := write(f, result); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	log.Printf("[ExcelWriter] run %s written to %s", result.Manifest.RunID, filepath.Base(path))
	return nil
}

// WriteOutputsCSV writes raw trial outputs as lane,trial,value rows.
func WriteOutputsCSV(path string, outputs []float64, trialsPerLane int) error {
	if trialsPerLane <= 0 {
		return fmt.Errorf("trials per lane must be positive")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"lane", "trial", "value"}); err != nil {
		return err
	}
	for i, v := range outputs {
		record := []string{
			strconv.Itoa(i / trialsPerLane),
			strconv.Itoa(i % trialsPerLane),
			strconv.FormatFloat(v, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

// cellFloat keeps non-finite statistics readable; excelize cannot store them as numbers.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, result *run.Result) error {
	s := result.Summary
	rows := [][]interface{}{
		{"statistic", "value"},
		{"run_id", result.Manifest.RunID.String()},
		{"fingerprint", result.Manifest.Fingerprint.String()},
		{"duration_ms", float64(result.Duration.Microseconds()) / 1000},
	}
	if s != nil {
		rows = append(rows, [][]interface{}{
			{"count", s.Count},
			{"finite", s.Finite},
			{"nan", s.NaN},
			{"pos_inf", s.PosInf},
			{"neg_inf", s.NegInf},
			{"mean", cellFloat(s.Mean)},
			{"std_dev", cellFloat(s.StdDev)},
			{"min", cellFloat(s.Min)},
			{"p1", cellFloat(s.Percentiles.P1)},
			{"p5", cellFloat(s.Percentiles.P5)},
			{"p25", cellFloat(s.Percentiles.P25)},
			{"median", cellFloat(s.Median)},
			{"p75", cellFloat(s.Percentiles.P75)},
			{"p95", cellFloat(s.Percentiles.P95)},
			{"p99", cellFloat(s.Percentiles.P99)},
			{"max", cellFloat(s.Max)},
			{"skewness", cellFloat(s.Skewness)},
			{"excess_kurtosis", cellFloat(s.Kurtosis)},
			{"mean_ci95_lower", cellFloat(s.MeanCI95.Lower)},
			{"mean_ci95_upper", cellFloat(s.MeanCI95.Upper)},
		}...)
	}
	return setRows(f, SheetSummary, rows)
}

func writeHistogram(f *excelize.File, result *run.Result) error {
	rows := [][]interface{}{{"lower", "upper", "center", "count"}}
	if result.Summary != nil {
		h := result.Summary.Histogram
		for i, c := range h.Counts {
			lower := h.Min + float64(i)*h.Width
			rows = append(rows, []interface{}{
				cellFloat(lower), cellFloat(lower + h.Width), cellFloat(h.BinCenter(i)), c,
			})
		}
	}
	return setRows(f, SheetHistogram, rows)
}

func writeModel(f *excelize.File, result *run.Result) error {
	m := result.Manifest
	bins := 0
	if result.Summary != nil {
		bins = len(result.Summary.Histogram.Counts)
	}
	return setRows(f, SheetModel, [][]interface{}{
		{KeyName, m.Name},
		{KeyFormula, m.Formula},
		{KeyLanes, m.Lanes},
		{KeyTrialsPerLane, m.TrialsPerLane},
		{KeySeed, strconv.FormatInt(m.Seed, 10)},
		{KeyHistogramBins, bins},
	})
}

func writeInputs(f *excelize.File, result *run.Result) error {
	rows := [][]interface{}{{"name", "family", "param1", "param2", "param3"}}
	for _, in := range result.Manifest.Inputs {
		rows = append(rows, []interface{}{
			in.Name, in.Family.String(),
			float64(in.Params.Param1), float64(in.Params.Param2), float64(in.Params.Param3),
		})
	}
	return setRows(f, SheetInputs, rows)
}
