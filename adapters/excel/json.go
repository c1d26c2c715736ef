package excel

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"mcsim/domain/run"
)

// inputPaths are tried in order: a run request body, a stored run result,
// and a bare array of declarations.
var inputPaths = []string{"inputs", "manifest.inputs", "@this"}

// readInputsJSON extracts input declarations from a JSON document.
func readInputsJSON(path string) ([]run.InputDecl, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return parseInputsJSON(body)
}

func parseInputsJSON(body []byte) ([]run.InputDecl, error) {
	for _, p := range inputPaths {
		result := gjson.GetBytes(body, p)
		if !result.IsArray() {
			continue
		}
		var decls []run.InputDecl
		if err := json.Unmarshal([]byte(result.Raw), &decls); err != nil {
			return nil, fmt.Errorf("failed to parse inputs at %q: %w", p, err)
		}
		return decls, nil
	}
	return nil, fmt.Errorf("no inputs array found (tried %v)", inputPaths)
}
