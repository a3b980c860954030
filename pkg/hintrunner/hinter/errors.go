package hinter

import "fmt"

type Kind int

const (
	UnknownValue Kind = iota
	NotARelocatable
	NotAnAddress
	UnknownOperator
	UnknownHintVariable
	EmptyScopeStack
	UnknownScopeVariable
)

func (k Kind) String() string {
	switch k {
	case UnknownValue:
		return "UnknownValue"
	case NotARelocatable:
		return "NotARelocatable"
	case NotAnAddress:
		return "NotAnAddress"
	case UnknownOperator:
		return "UnknownOperator"
	case UnknownHintVariable:
		return "UnknownHintVariable"
	case EmptyScopeStack:
		return "EmptyScopeStack"
	case UnknownScopeVariable:
		return "UnknownScopeVariable"
	default:
		return "Unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
