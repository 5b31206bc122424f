package asm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shicks/js65/srcpos"
)

// ErrAsm collects every error raised while assembling a module, each
// tagged with the source position it came from.
type ErrAsm []struct {
	Pos srcpos.Pos
	Msg string
}

func (e ErrAsm) Error() string {
	l := make([]string, 0, len(e))
	for _, err := range e {
		if err.Pos.IsValid() {
			l = append(l, fmt.Sprintf("%s: %s", err.Pos, err.Msg))
		} else {
			l = append(l, err.Msg)
		}
	}
	return strings.Join(l, "\n")
}

// fail records a fatal error at pos and returns it wrapped for the
// immediate caller; assembly of the current line stops, but the
// assembler itself remains usable for diagnostics.
func (a *Assembler) fail(pos srcpos.Pos, format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	a.errs = append(a.errs, struct {
		Pos srcpos.Pos
		Msg string
	}{pos, err.Error()})
	return err
}
