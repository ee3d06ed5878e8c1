package webppl

import "fmt"

// Error taxonomy. CompileError is fatal to the compilation unit and
// never partially emitted; RuntimeError is raised while executing
// compiled code and surfaces at the driver-loop boundary;
// ContractViolationError means the compiled calling convention was
// broken, which is a pipeline bug rather than a user error.

type CompileError struct {
	Msg string
	Pos Pos
}

func (e *CompileError) Error() string {
	if e.Pos == (Pos{}) {
		return "compile: " + e.Msg
	}
	return fmt.Sprintf("compile: %s: %s", e.Pos, e.Msg)
}

func compileErrorf(pos Pos, format string, args ...any) *CompileError {
	return &CompileError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

type RuntimeError struct {
	Msg   string
	Pos   Pos
	RunID string // id of the run that raised it, "" before the driver tags it
}

func (e *RuntimeError) Error() string {
	s := "runtime: "
	if e.Pos != (Pos{}) {
		s += e.Pos.String() + ": "
	}
	s += e.Msg
	if e.RunID != "" {
		s += " (run " + e.RunID + ")"
	}
	return s
}

func runtimeErrorf(pos Pos, format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

type ContractViolationError struct {
	Msg string
	Pos Pos
}

func (e *ContractViolationError) Error() string {
	if e.Pos == (Pos{}) {
		return "calling convention violated: " + e.Msg
	}
	return fmt.Sprintf("calling convention violated: %s: %s", e.Pos, e.Msg)
}

func contractErrorf(pos Pos, format string, args ...any) *ContractViolationError {
	return &ContractViolationError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// ErrorList aggregates several errors into one.
type ErrorList []error

func (l ErrorList) Error() string {
	s := ""
	for i, err := range l {
		if i != 0 {
			s += "\n"
		}
		s += err.Error()
	}
	return s
}

// multiError aggregates multiple errors.
// strips out nils (may modify the input list).
func multiError(errors ...error) error {
	j := 0
	for i := range errors {
		if errors[i] != nil {
			if i != j {
				errors[j] = errors[i]
			}
			j++
		}
	}
	switch j {
	case 0:
		return nil
	case 1:
		return errors[0]
	default:
		return ErrorList(errors[:j])
	}
}
