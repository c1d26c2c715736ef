package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"mcsim/app"
	"mcsim/domain/run"
)

const (
	historyFile = ".mcsim_history"
	promptMain  = "mc> "
)

const replHelp = `Enter a formula to simulate it with the declared inputs.
  :input name=family:p1,p2[,p3]   declare or replace an input
  :inputs                          list declared inputs
  :drop name                       remove an input
  :set lanes|trials|seed|bins N    change run settings
  :compile formula                 show the instruction listing
  :help                            this text
  :quit                            exit`

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively declare inputs and simulate formulas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			return runREPL(ctx, newReplSession(c.Service, cmd.OutOrStdout()))
		},
	}
}

func runREPL(ctx context.Context, s *replSession) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(s.out, "mcsim repl, :help for commands")
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if s.handle(ctx, line) {
			return nil
		}
	}
}

// replSession holds the inputs and run settings between REPL lines.
type replSession struct {
	svc *app.SimulationService
	req run.Request
	out io.Writer
}

func newReplSession(svc *app.SimulationService, out io.Writer) *replSession {
	req := svc.NewRequest()
	req.Name = "repl"
	return &replSession{svc: svc, req: req, out: out}
}

// handle executes one line and reports whether the session should end.
func (s *replSession) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		s.simulate(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "quit", "q", "exit":
		return true
	case "help":
		fmt.Fprintln(s.out, replHelp)
	case "input":
		decl, err := parseInputFlag(arg)
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		s.dropInput(decl.Name)
		s.req.Inputs = append(s.req.Inputs, decl)
	case "drop":
		if !s.dropInput(arg) {
			fmt.Fprintf(s.out, "no input named %q\n", arg)
		}
	case "inputs":
		for _, in := range s.req.Inputs {
			fmt.Fprintf(s.out, "%-16s %-12s %g, %g, %g\n", in.Name, in.Family,
				in.Params.Param1, in.Params.Param2, in.Params.Param3)
		}
	case "set":
		if err := s.set(arg); err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
	case "compile":
		program, err := s.svc.Compile(arg, s.req.InputNames())
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		for i, l := range program.Disassemble() {
			fmt.Fprintf(s.out, "%4d  %s\n", i, l)
		}
	default:
		fmt.Fprintf(s.out, "unknown command :%s, type :help\n", cmd)
	}
	return false
}

func (s *replSession) dropInput(name string) bool {
	for i, in := range s.req.Inputs {
		if in.Name == name {
			s.req.Inputs = append(s.req.Inputs[:i], s.req.Inputs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *replSession) set(arg string) error {
	key, value, ok := strings.Cut(arg, " ")
	if !ok {
		return fmt.Errorf("usage: :set lanes|trials|seed|bins N")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return err
	}
	switch key {
	case "lanes":
		s.req.Lanes = int(n)
	case "trials":
		s.req.TrialsPerLane = int(n)
	case "seed":
		s.req.Seed = n
	case "bins":
		s.req.HistogramBins = int(n)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (s *replSession) simulate(ctx context.Context, formula string) {
	req := s.req
	req.Formula = formula
	result, err := s.svc.Run(ctx, req)
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	sum := result.Summary
	fmt.Fprintf(s.out, "mean %.6g  sd %.6g  p5 %.6g  p95 %.6g  (%d trials",
		sum.Mean, sum.StdDev, sum.Percentiles.P5, sum.Percentiles.P95, sum.Count)
	if nonFinite := sum.Count - sum.Finite; nonFinite > 0 {
		fmt.Fprintf(s.out, ", %d non-finite", nonFinite)
	}
	fmt.Fprintf(s.out, ", run %s)\n", result.Manifest.RunID)
}
