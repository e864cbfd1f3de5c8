// Command plan is the offline counterpart to the HTTP API: it loads a JSON
// input bundle, optionally validates or schedules it, and writes the §6a
// result shape to stdout or a file. It performs no schema sanitization of
// the input JSON: a bundle that does not decode is a parse error, an
// unknown frequency kind is a validate.Error, and other enum strings
// (location, activity type) are passed through unchecked, never coerced.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/engine/scheduler"
	"github.com/healthplan/scheduler/internal/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plan",
		Short: "Run or validate an adaptive scheduling plan offline",
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var inputPath, outPath, startDate string
	var horizonDays int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate and schedule a JSON input bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(inputPath)
			if err != nil {
				return err
			}
			if startDate != "" {
				var d domain.Date
				if err := json.Unmarshal([]byte(`"`+startDate+`"`), &d); err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
				req.StartDate = d
			}
			if horizonDays != 0 {
				req.HorizonDays = horizonDays
			}

			if err := validate.Request(req); err != nil {
				return err
			}

			ledger, err := scheduler.Run(cmd.Context(), scheduler.Inputs{
				StartDate:     req.StartDate,
				HorizonDays:   req.HorizonDays,
				Activities:    req.Activities,
				Specialists:   req.Specialists,
				Equipment:     req.Equipment,
				TravelPeriods: req.TravelPeriods,
				Params:        toSchedulerParams(req.Params),
			})
			if err != nil {
				return fmt.Errorf("engine run: %w", err)
			}

			result := scheduler.BuildResult(ledger, scheduler.Inputs{
				StartDate:     req.StartDate,
				HorizonDays:   req.HorizonDays,
				TravelPeriods: req.TravelPeriods,
			})

			return writeResult(result, outPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON RunRequest bundle (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the result here instead of stdout")
	cmd.Flags().StringVar(&startDate, "start", "", "override the bundle's start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&horizonDays, "horizon", 0, "override the bundle's horizon in days")
	cmd.MarkFlagRequired("input")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run only the pre-run validation pass and report violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(inputPath)
			if err != nil {
				return err
			}

			err = validate.Request(req)
			if err == nil {
				fmt.Println("ok: no violations")
				return nil
			}

			var verr *validate.Error
			if !asValidateError(err, &verr) {
				return err
			}
			for _, v := range verr.Violations {
				fmt.Printf("%s: %s: %s\n", v.ActivityID, v.Field, v.Reason)
			}
			return fmt.Errorf("%d violation(s) found", len(verr.Violations))
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON RunRequest bundle (required)")
	cmd.MarkFlagRequired("input")

	return cmd
}

// toSchedulerParams converts a bundle's optional domain.ParamOverrides into
// a scheduler.Params; a nil pointer yields the zero Params, which
// scheduler.Run's withDefaults() fills from spec.md §4.1's defaults.
func toSchedulerParams(overrides *domain.ParamOverrides) scheduler.Params {
	if overrides == nil {
		return scheduler.Params{}
	}
	return scheduler.Params{
		PriorityCapacityFactors: overrides.PriorityCapacityFactors,
		AnchorTimes:             overrides.AnchorTimes,
		CandidateStepMinutes:    overrides.CandidateStepMinutes,
	}
}

func asValidateError(err error, target **validate.Error) bool {
	verr, ok := err.(*validate.Error)
	if ok {
		*target = verr
	}
	return ok
}

func loadRequest(path string) (domain.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RunRequest{}, fmt.Errorf("read input: %w", err)
	}
	var req domain.RunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.RunRequest{}, fmt.Errorf("parse input: %w", err)
	}
	return req, nil
}

func writeResult(result domain.RunResult, outPath string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
