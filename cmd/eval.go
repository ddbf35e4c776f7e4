package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/evaluation"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score the tutor against a scripted evaluation set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		configPath, _ := cmd.Flags().GetString("config")
		setPath, _ := cmd.Flags().GetString("evalset")
		outDir, _ := cmd.Flags().GetString("out")

		evalCfg := evaluation.DefaultConfig()
		if configPath != "" {
			c, err := evaluation.LoadConfig(configPath)
			if err != nil {
				return err
			}
			evalCfg = c
		}
		if evalCfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
			cfg.Log.Level = evalCfg.LogLevel
			if err := installLogger(cfg.Log.Level, os.Stderr); err != nil {
				return err
			}
		}
		set, err := evaluation.LoadEvalSet(setPath)
		if err != nil {
			return err
		}

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		sum := evaluation.New(evalCfg, set).Run(ctx, rt.tutor)
		printSummary(sum)

		path, err := sum.Save(outDir, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("\nResults saved to %s\n", path)
		return nil
	},
}

func printSummary(sum evaluation.Summary) {
	fmt.Printf("%-24s  %-10s  %6s  %6s  %6s  %7s  %s\n",
		"Case", "Difficulty", "Match", "Tools", "Socr.", "Overall", "Pass")
	fmt.Println(strings.Repeat("─", 80))
	for _, r := range sum.Results {
		pass := "✓"
		if !r.Passed {
			pass = "✗"
		}
		fmt.Printf("%-24s  %-10s  %6.2f  %6.2f  %6.2f  %7.2f  %s\n",
			truncate(r.TestCaseID, 24), r.Difficulty,
			r.Metrics.ResponseMatch, r.Metrics.ToolTrajectory, r.Metrics.Socratic, r.Metrics.Overall, pass)
		if r.Error != "" {
			fmt.Printf("  error: %s\n", r.Error)
		}
	}
	fmt.Println(strings.Repeat("─", 80))
	fmt.Printf("Suite %s: %d/%d passed (%.1f%%), average score %.2f\n",
		sum.TestSuite, sum.Passed, sum.TotalTests, sum.PassRate*100, sum.AverageScore)
}

func init() {
	evalCmd.Flags().String("config", "", "Evaluation config (JSON or YAML); defaults to the built-in weights")
	evalCmd.Flags().String("evalset", "", "Evaluation set with test_cases (JSON or YAML)")
	evalCmd.Flags().String("out", "evaluation/results", "Directory for results_<timestamp>.json")
	_ = evalCmd.MarkFlagRequired("evalset")
}
