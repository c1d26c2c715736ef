package excel

// Sheet names of model and result workbooks
const (
	SheetModel     = "Model"
	SheetInputs    = "Inputs"
	SheetSummary   = "Summary"
	SheetHistogram = "Histogram"
)

// Model sheet keys, one per row: key in column A, value in column B.
const (
	KeyName          = "name"
	KeyFormula       = "formula"
	KeyLanes         = "lanes"
	KeyTrialsPerLane = "trials_per_lane"
	KeySeed          = "seed"
	KeyHistogramBins = "histogram_bins"
)

var inputHeaders = []string{"name", "family", "param1", "param2", "param3"}

// RawRowData represents a row of raw sheet data keyed by header
type RawRowData map[string]string

// SheetData holds a header row and the rows below it
type SheetData struct {
	Headers []string
	Rows    []RawRowData
}
