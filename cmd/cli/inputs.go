package main

import (
	"fmt"
	"strconv"
	"strings"

	"mcsim/domain/kernel"
	"mcsim/domain/run"
)

// parseInputFlag parses name=family:p1,p2[,p3]. Missing trailing parameters are zero.
func parseInputFlag(s string) (run.InputDecl, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return run.InputDecl{}, fmt.Errorf("input %q: expected name=family:params", s)
	}
	familyName, paramList, _ := strings.Cut(rest, ":")
	family, err := kernel.ParseFamily(familyName)
	if err != nil {
		return run.InputDecl{}, fmt.Errorf("input %q: %w", name, err)
	}

	var params [3]float32
	if paramList != "" {
		fields := strings.Split(paramList, ",")
		if len(fields) > len(params) {
			return run.InputDecl{}, fmt.Errorf("input %q: at most %d parameters, got %d", name, len(params), len(fields))
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return run.InputDecl{}, fmt.Errorf("input %q parameter %d: %w", name, i+1, err)
			}
			params[i] = float32(v)
		}
	}

	return run.InputDecl{
		Name:   strings.TrimSpace(name),
		Family: family,
		Params: kernel.DistributionSpec{Param1: params[0], Param2: params[1], Param3: params[2]},
	}, nil
}
