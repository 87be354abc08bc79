package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <problem.json>",
	Short: "Grade one answer against a problem file, without a server",
	Example: `  classroomd grade circle.json --answer 3.1416
  classroomd grade planets.json --index 2 --prior 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var p grading.Problem
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		if err := grading.ValidateProblem(p); err != nil {
			return err
		}

		var a grading.Answer
		a.Text, _ = cmd.Flags().GetString("answer")
		if cmd.Flags().Changed("index") {
			idx, _ := cmd.Flags().GetInt("index")
			a.Index = &idx
		}
		if err := grading.CheckComplete(p, a); err != nil {
			return err
		}
		prior, _ := cmd.Flags().GetInt("prior")

		res := grading.NewEngine(grading.WithDefaultTolerance(cfg.MathTolerance)).Grade(p, a, prior)
		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		fmt.Fprintf(out, "score: %s/%s\n", grading.FormatScore(res.Score), grading.FormatScore(p.Points))
		return nil
	},
}

func init() {
	gradeCmd.Flags().String("answer", "", "Answer text (math-expression, open-ended)")
	gradeCmd.Flags().Int("index", 0, "Selected option index (multiple-choice)")
	gradeCmd.Flags().Int("prior", 0, "Attempts made before this one")
}
