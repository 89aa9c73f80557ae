package worker

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is on the error returned by Run.
var (
	ErrPrecondition = errors.New("precondition failed")
	ErrFetch        = errors.New("fetch failed")
	ErrLoad         = errors.New("load failed")
	ErrWrite        = errors.New("write failed")
	ErrReport       = errors.New("report failed")
)

type Step string

const (
	StepConfig Step = "config"
	StepFetch  Step = "fetch"
	StepStage  Step = "stage"
	StepUpsert Step = "upsert"
	StepReport Step = "report"
)

// StepError says which step stopped the run and why.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func fail(step Step, kind, err error) error {
	return &StepError{Step: step, Kind: kind, Err: err}
}
