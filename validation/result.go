package validation

import (
	"fmt"
	"strings"
)

// Result collects the findings of a validation run. Errors fail the run,
// warnings and infos do not.
type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Infos    []string `json:"info"`
	Passed   int      `json:"passed_checks"`
	Total    int      `json:"total_checks"`
}

func NewResult() *Result {
	return &Result{
		Errors:   []string{},
		Warnings: []string{},
		Infos:    []string{},
	}
}

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Total++
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	r.Total++
}

func (r *Result) addInfo(format string, args ...interface{}) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

func (r *Result) pass() {
	r.Passed++
	r.Total++
}

func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *Result) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// Summary renders a one line status such as
// "PASSED - 120/124 checks passed | 4 warnings".
func (r *Result) Summary() string {
	status := "PASSED"
	if !r.IsValid() {
		status = "FAILED"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%v - %v/%v checks passed", status, r.Passed, r.Total)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, " | %v errors", len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, " | %v warnings", len(r.Warnings))
	}
	return sb.String()
}
