package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Report is the outcome of a validation run.
type Report struct {
	Results []Result `json:"results"`
}

// Passed returns the number of passed checks.
func (r Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the failed checks.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// SuccessRate returns the passed share in whole percent.
func (r Report) SuccessRate() int {
	if len(r.Results) == 0 {
		return 0
	}
	return int(math.Round(float64(r.Passed()) / float64(len(r.Results)) * 100))
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	return len(r.Results) > 0 && len(r.Failed()) == 0
}

// Print writes the summary, each result and the details of failed checks.
func Print(w io.Writer, r Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Validation Report")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Total Tests: %d\n", len(r.Results))
	fmt.Fprintf(w, "Passed: %d\n", r.Passed())
	fmt.Fprintf(w, "Failed: %d\n", len(r.Results)-r.Passed())
	fmt.Fprintf(w, "Success Rate: %d%%\n\n", r.SuccessRate())

	for i, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%d. [%s] %s: %s\n", i+1, status, res.Name, res.Message)
		if res.Duration > 0 {
			fmt.Fprintf(w, "   Duration: %dms\n", res.Duration.Milliseconds())
		}
	}

	failed := r.Failed()
	if len(failed) > 0 {
		fmt.Fprintln(w, "\nFailed Test Details:")
		for i, res := range failed {
			fmt.Fprintf(w, "\n%d. %s:\n", i+1, res.Name)
			fmt.Fprintf(w, "   Message: %s\n", res.Message)
			if res.Details != nil {
				details, err := json.MarshalIndent(res.Details, "   ", "  ")
				if err != nil {
					details = []byte(fmt.Sprint(res.Details))
				}
				fmt.Fprintf(w, "   Details: %s\n", details)
			}
		}
		fmt.Fprintf(w, "\nValidation failed: %d test(s) failed\n", len(failed))
		return
	}
	fmt.Fprintln(w, "\nAll validation tests passed!")
}
