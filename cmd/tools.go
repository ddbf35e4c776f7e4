package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/problems"
)

var problemCmd = &cobra.Command{
	Use:   "problem [slug]",
	Short: "Fetch a LeetCode problem, or a random popular one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		diff, _ := cmd.Flags().GetString("difficulty")
		d, err := problems.ParseDifficulty(diff)
		if err != nil {
			return err
		}
		req := problems.Request{Difficulty: d}
		if len(args) == 1 {
			req.Slug = args[0]
		}

		rt := &runtime{}
		defer rt.Close()
		p, err := rt.problemService(ctx).Fetch(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(p.JSON())
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <file.py>",
	Short: "Run a Python file through the code sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		code, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		rt := &runtime{}
		defer rt.Close()
		ex, err := rt.executor(ctx)
		if err != nil {
			return err
		}
		if ex == nil {
			return errors.New("code execution is disabled (ALGOTUTOR_SANDBOX=off)")
		}
		fmt.Println(ex.Execute(ctx, string(code)).JSON())
		return nil
	},
}

func init() {
	problemCmd.Flags().StringP("difficulty", "d", "", "Easy, Medium or Hard (random problems only)")
}
