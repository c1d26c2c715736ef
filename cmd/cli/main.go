package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mcsim/adapters/excel"
	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
	"mcsim/internal"
	"mcsim/internal/config"
	"mcsim/internal/container"
	"mcsim/internal/report"
	"mcsim/internal/seeding"
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "mcsim-cli",
		Short:        "Monte Carlo simulation runner",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newExcelRunCmd(),
		newCompileCmd(),
		newDisassembleCmd(),
		newSeedCmd(),
		newReplayCmd(),
		newReplCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openContainer loads configuration from the environment and builds the
// application container. Runs are persisted when DATABASE_URL names a
// postgres database or a sqlite:// file.
func openContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(os.Getenv("LOG_LEVEL")))
	return container.Open(ctx, cfg, logger)
}

// outputFlags are the export destinations shared by run and excel-run.
type outputFlags struct {
	xlsx      string
	csv       string
	reportDir string
	asJSON    bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write the summary workbook to this path")
	cmd.Flags().StringVar(&o.csv, "csv", "", "Write every trial output to this CSV path")
	cmd.Flags().StringVar(&o.reportDir, "report", "", "Write markdown and HTML reports into this directory")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the result as JSON instead of a table")
}

func newRunCmd() *cobra.Command {
	var (
		name       string
		formula    string
		inputs     []string
		inputsFile string
		lanes      int
		trials     int
		seed       int64
		bins       int
		out        outputFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from command-line flags",
		Long: `Compile a formula, sample its inputs and report the output distribution.

Inputs are declared as name=family:p1,p2[,p3] where family is one of
normal, lognormal, uniform, triangular or exponential.

Example: mcsim-cli run --name margin --formula "(price - cost) * units" \
  --input price=triangular:8,14,10 --input cost=normal:6,0.5 \
  --input units=uniform:900,1100 --lanes 256 --trials 4000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			req := c.Service.NewRequest()
			req.Name = name
			req.Formula = formula
			if inputsFile != "" {
				decls, err := excel.ReadInputs(inputsFile)
				if err != nil {
					return err
				}
				req.Inputs = append(req.Inputs, decls...)
			}
			for _, flag := range inputs {
				decl, err := parseInputFlag(flag)
				if err != nil {
					return err
				}
				req.Inputs = append(req.Inputs, decl)
			}
			flags := cmd.Flags()
			if flags.Changed("lanes") {
				req.Lanes = lanes
			}
			if flags.Changed("trials") {
				req.TrialsPerLane = trials
			}
			if flags.Changed("seed") {
				req.Seed = seed
			}
			if flags.Changed("bins") {
				req.HistogramBins = bins
			}
			return executeRun(cmd, c, req, out)
		},
	}

	cmd.Flags().StringVar(&name, "name", "cli", "Run name; together with the seed it fixes every lane stream")
	cmd.Flags().StringVar(&formula, "formula", "", "Arithmetic formula over the declared inputs")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input declaration name=family:p1,p2[,p3] (repeatable)")
	cmd.Flags().StringVar(&inputsFile, "inputs", "", "CSV or xlsx file with input declarations")
	cmd.Flags().IntVar(&lanes, "lanes", 0, "Number of independent generator lanes (default from MC_LANES)")
	cmd.Flags().IntVar(&trials, "trials", 0, "Trials per lane (default from MC_TRIALS_PER_LANE)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed (default from MC_SEED)")
	cmd.Flags().IntVar(&bins, "bins", 0, "Histogram bins (default from MC_HISTOGRAM_BINS)")
	out.register(cmd)
	cmd.MarkFlagRequired("formula")

	return cmd
}

func newExcelRunCmd() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "excel-run [model.xlsx]",
		Short: "Run a simulation described by a workbook",
		Long: `Read the Model and Inputs sheets of a workbook, run it and write the
results. Without --xlsx the results are written next to the model as
<model>_result.xlsx. A result workbook can itself be run again as a model.

Example: mcsim-cli excel-run model.xlsx --report ./reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			req, err := excel.ReadModel(args[0], c.Service.NewRequest())
			if err != nil {
				return err
			}
			if out.xlsx == "" {
				out.xlsx = strings.TrimSuffix(args[0], ".xlsx") + "_result.xlsx"
			}
			return executeRun(cmd, c, *req, out)
		},
	}

	out.register(cmd)
	return cmd
}

func executeRun(cmd *cobra.Command, c *container.Container, req run.Request, out outputFlags) error {
	stderr := cmd.ErrOrStderr()
	lastPct := -1
	progress := func(done, total int) {
		pct := done * 100 / total
		if pct/10 != lastPct/10 {
			lastPct = pct
			fmt.Fprintf(stderr, "\r%3d%% (%d/%d lanes)", pct, done, total)
		}
	}

	result, err := c.Service.RunWithProgress(cmd.Context(), req, progress)
	fmt.Fprintln(stderr)
	if err != nil {
		return err
	}

	if out.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		cmd.OutOrStdout().Write(report.Markdown(result))
	}

	if out.xlsx != "" {
		if err := excel.WriteResult(out.xlsx, result); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Workbook saved to: %s\n", out.xlsx)
	}
	if out.csv != "" {
		if err := excel.WriteOutputsCSV(out.csv, result.Outputs, result.Manifest.TrialsPerLane); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Outputs saved to: %s\n", out.csv)
	}
	if out.reportDir != "" {
		mdPath, htmlPath, err := report.WriteFiles(out.reportDir, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Reports saved to: %s, %s\n", mdPath, htmlPath)
	}
	return nil
}

func newCompileCmd() *cobra.Command {
	var showBytecode bool

	cmd := &cobra.Command{
		Use:   "compile [formula] [input-names...]",
		Short: "Compile a formula and print its instruction listing",
		Long: `Compile a formula against input names in declaration order and print
the stack program the evaluator will run.

Example: mcsim-cli compile "(price - cost) * units" price cost units`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			program, err := c.Service.Compile(args[0], args[1:])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, line := range program.Disassemble() {
				fmt.Fprintf(w, "%4d  %s\n", i, line)
			}
			fmt.Fprintf(w, "\n%d instructions, max stack depth %d, %d inputs referenced\n",
				program.Len(), program.MaxDepth(), program.InputCount())
			if showBytecode {
				fmt.Fprintln(w, hex.EncodeToString(kernel.EncodeProgram(program)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showBytecode, "bytecode", false, "Also print the packed program as hex")
	return cmd
}

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble [hex]",
		Short: "Validate packed bytecode and print its instruction listing",
		Long: `Decode a packed program, as printed by compile --bytecode or returned
base64-decoded from /api/compile, check it the way the evaluator requires
and print its listing.

Example: mcsim-cli disassemble 0400000000000000000000000500...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid bytecode hex: %w", err)
			}
			program, err := kernel.DecodeProgram(raw)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, line := range program.Disassemble() {
				fmt.Fprintln(w, line)
			}
			fmt.Fprintf(w, "\n%d instructions, max stack depth %d, %d inputs referenced\n",
				program.Len(), program.MaxDepth(), program.InputCount())
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		lanes  int
		draws  int
		expect []float64
	)

	cmd := &cobra.Command{
		Use:   "seed [name] [seed]",
		Short: "Print the generator states derived for a run name and seed",
		Long: `Show the per-lane xorshift128+ states a run with this name and seed
starts from, followed by each lane's first uniform draws. With --expect the
first draws of lane 0 are checked against the given values, which is how
another implementation of the generator is verified against this one.

Example: mcsim-cli seed margin 7 --lanes 4 --draws 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var baseSeed int64
			if _, err := fmt.Sscan(args[1], &baseSeed); err != nil {
				return fmt.Errorf("invalid seed %q: %w", args[1], err)
			}
			seeder := seeding.NewSplitMixSeeder()
			states, err := seeder.SeedLanes(cmd.Context(), args[0], baseSeed, lanes)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(expect) > 0 {
				if err := seeder.ValidateSeed(cmd.Context(), states[0], expect); err != nil {
					return err
				}
				fmt.Fprintf(w, "lane 0 matches %d expected draws\n", len(expect))
			}
			for i, state := range states {
				fmt.Fprintf(w, "lane %4d  s0=%016x s1=%016x", i, state.S0, state.S1)
				for j := 0; j < draws; j++ {
					fmt.Fprintf(w, "  %.17f", state.NextUniform())
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lanes, "lanes", 8, "Number of lanes to derive")
	cmd.Flags().IntVar(&draws, "draws", 2, "Uniform draws to print per lane")
	cmd.Flags().Float64SliceVar(&expect, "expect", nil, "Expected first uniform draws of lane 0")
	return cmd
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-execute a stored run and verify it reproduces",
		Long: `Load a run from the configured store (DATABASE_URL), execute it again
from its manifest and check the fingerprint and summary match.

Example: DATABASE_URL=sqlite://./runs.db mcsim-cli replay 0190c2a4-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			result, err := c.Service.Replay(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s reproduced: fingerprint %s, mean %s over %d trials\n",
				args[0], result.Manifest.Fingerprint.Short(), formatMean(result), result.Summary.Count)
			return nil
		},
	}
	return cmd
}

func formatMean(result *run.Result) string {
	if result.Summary == nil || result.Summary.Finite == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.6g", result.Summary.Mean)
}
