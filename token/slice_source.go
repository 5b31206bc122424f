package token

import "context"

// SliceSource is a Source backed by a fixed, in-memory list of lines.
// It exists so tests can feed the assembler core without standing up a
// real tokenizer/preprocessor.
type SliceSource struct {
	lines []Line
	pos   int
}

// NewSliceSource returns a Source that yields lines in order.
func NewSliceSource(lines []Line) *SliceSource {
	return &SliceSource{lines: lines}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (Line, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.lines) {
		return nil, false, nil
	}
	l := s.lines[s.pos]
	s.pos++
	return l, true, nil
}
