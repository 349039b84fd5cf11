package interpreter

import (
	"fmt"
	"strings"

	"noeval/interpreter-go/pkg/runtime"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	ErrCustom ErrorKind = iota
	ErrUnboundVariable
	ErrArityMismatch
	ErrTypeMismatch
	ErrImproperList
	ErrNotEvaluable
	ErrNotAnOperative
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnboundVariable:
		return "unbound-variable"
	case ErrArityMismatch:
		return "arity-mismatch"
	case ErrTypeMismatch:
		return "type-mismatch"
	case ErrImproperList:
		return "improper-list"
	case ErrNotEvaluable:
		return "not-evaluable"
	case ErrNotAnOperative:
		return "not-an-operative"
	default:
		return "error"
	}
}

// EvalError is the structured failure produced by the evaluator and the
// builtins. Message holds the root cause, Context the innermost expression
// being evaluated when the fault was first caught, StackTrace the rendered
// shadow stack at the throw site. An EvalError crossing further frames is
// never re-wrapped.
type EvalError struct {
	Kind       ErrorKind
	Message    string
	Context    string
	StackTrace string
}

func (e *EvalError) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return e.Message + "\n  while evaluating: " + e.Context
}

// wrapError turns a foreign failure into an EvalError exactly once. An error
// that is already an EvalError passes through untouched, keeping its inner
// context.
func (in *Interpreter) wrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	if evalErr, ok := err.(*EvalError); ok {
		return evalErr
	}
	kind := ErrCustom
	switch err.(type) {
	case *runtime.UnboundVariableError:
		kind = ErrUnboundVariable
	case *runtime.ImproperListError:
		kind = ErrImproperList
	}
	return &EvalError{
		Kind:       kind,
		Message:    err.Error(),
		Context:    context,
		StackTrace: in.stack.format(),
	}
}

// errorf builds a fully contextualized EvalError at the throw site.
func (in *Interpreter) errorf(kind ErrorKind, context, format string, args ...any) *EvalError {
	return &EvalError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Context:    context,
		StackTrace: in.stack.format(),
	}
}

// callStack is the shadow stack of rendered expressions: one entry per
// native (non-tail) evaluation frame. Trampoline re-entries replace the top
// entry instead of pushing, so tail loops run at constant depth.
type callStack struct {
	frames   []string
	maxDepth int
}

func (s *callStack) push(rendered string) {
	s.frames = append(s.frames, rendered)
	if len(s.frames) > s.maxDepth {
		s.maxDepth = len(s.frames)
	}
}

func (s *callStack) pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *callStack) replaceTop(rendered string) {
	if len(s.frames) > 0 {
		s.frames[len(s.frames)-1] = rendered
	}
}

func (s *callStack) depth() int { return len(s.frames) }

func (s *callStack) format() string {
	var b strings.Builder
	for i, line := range s.frames {
		fmt.Fprintf(&b, "%d: %s\n", i, line)
	}
	return b.String()
}

// renderContext is Render with a safety net: context building must never
// itself take the evaluator down.
func renderContext(expr runtime.Value) (out string) {
	out = "<expression>"
	if expr == nil {
		return
	}
	defer func() { _ = recover() }()
	return runtime.Render(expr)
}
