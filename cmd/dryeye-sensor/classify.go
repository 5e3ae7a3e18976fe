package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

var (
	classifyCompleteFlag   int
	classifyIncompleteFlag int
)

var classifyCmd = &cobra.Command{
	Use:   "classify RATE",
	Short: "Print the assessment for a blink rate",
	Long: `Classify prints the assessment a session would produce for RATE complete
blinks per minute. --complete and --incomplete only affect the displayed counts
and the incomplete percentage.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().IntVar(&classifyCompleteFlag, "complete", 0, "Complete blink count for display")
	classifyCmd.Flags().IntVar(&classifyIncompleteFlag, "incomplete", 0, "Incomplete blink count")
}

func runClassify(cmd *cobra.Command, args []string) error {
	rate, err := strconv.ParseFloat(args[0], 64)
	if err != nil || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("invalid rate %q", args[0])
	}

	a := logic.NewClassifier(logic.DefaultThresholds()).AssessRate(rate, logic.Counters{
		ElapsedSeconds:   logic.DefaultSessionSeconds,
		CompleteBlinks:   classifyCompleteFlag,
		IncompleteBlinks: classifyIncompleteFlag,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
