package compiler

import "fmt"

// TranslationError is spec §7's translation-error kind: a malformed
// source or type mismatch detected during generation, reported once
// with a message and the offending node's source position.
type TranslationError struct {
	Message string
	Line    int
	Column  int
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
