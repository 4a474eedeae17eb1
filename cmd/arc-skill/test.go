package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/scenario"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

func newTestCmd(v *viper.Viper) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run YAML dialog scenarios",
		Long: `Run YAML dialog scenarios against the skill. Directories are expanded
to their *.yaml and *.yml files. The command fails when any step fails.

Examples:
  arc-skill test scenarios/
  arc-skill test calculator.yaml --remote localhost:50051
  arc-skill test scenarios/ -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			files, err := scenario.Files(args...)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no scenario files in %s", strings.Join(args, ", "))
			}

			return cli.RunCommand(cli.CommandConfig{
				Name:   "test",
				Viper:  v,
				Output: cli.NewOutput(cli.ParseFormat(v.GetString("output")), cmd.OutOrStdout()),
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					inv, closeFn, err := newInvoker(remote, cfg.Skill, rt.Log())
					if err != nil {
						return err
					}
					defer func() { _ = closeFn() }()

					results := make([]*scenario.Result, 0, len(files))
					for _, f := range files {
						sc, err := scenario.Load(f)
						if err != nil {
							return err
						}
						if sc.ApplicationID == "" {
							sc.ApplicationID = cfg.Skill.ID
						}
						res, err := scenario.Run(ctx, inv, sc)
						if err != nil {
							return fmt.Errorf("%s: %w", f, err)
						}
						results = append(results, res)
					}
					return reportScenarios(out, results)
				},
			})
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running skill server")
	return cmd
}

// reportScenarios renders one row per failed step, or per scenario when it
// passed, and returns an error when anything failed.
func reportScenarios(out *cli.Output, results []*scenario.Result) error {
	tbl := out.Table("scenario-results", "Scenario", "Step", "Input", "Status", "Detail")
	failed := 0
	for _, res := range results {
		if res.Passed {
			tbl.AddRow(res.Name, "", "", "pass", fmt.Sprintf("%d steps", len(res.Steps)))
			continue
		}
		failed++
		for _, st := range res.Steps {
			if st.Passed() {
				continue
			}
			tbl.AddRow(res.Name, strconv.Itoa(st.Step), st.Input, "fail", strings.Join(st.Failures, "; "))
		}
	}
	if err := tbl.Render(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}
