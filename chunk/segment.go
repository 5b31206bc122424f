package chunk

import "github.com/shicks/js65/internal/ivset"

// Segment is a named region of the output file or target memory: file
// offset, runtime memory base, extent, fill byte, and the list of
// address ranges still free for the linker to place things in.
type Segment struct {
	Name string

	Bank       int
	HasBank    bool
	Size       int
	HasSize    bool
	Offset     int
	HasOffset  bool
	Memory     int
	HasMemory  bool
	Fill       byte
	HasFill    bool
	Out        string
	Overlay    bool
	Addressing string
	ZP         bool

	Free *ivset.Set
}

// Attrs is the set of attributes a `.segment "name":attrs...` clause may
// update. A nil pointer field means "leave unset/unchanged".
type Attrs struct {
	Bank       *int
	Size       *int
	Offset     *int
	Memory     *int
	Fill       *byte
	Out        *string
	Overlay    *bool
	Addressing *string
	ZP         *bool
}

// containsOrg reports whether org falls within this segment's memory
// range and the segment has a known file offset. If no active segment
// contains the org, the position has no file offset.
func (s *Segment) containsOrg(org int) bool {
	if !s.HasMemory || !s.HasOffset {
		return false
	}
	if !s.HasSize {
		return org == s.Memory
	}
	return org >= s.Memory && org < s.Memory+s.Size
}

// offsetOf translates a memory address within this segment to a file
// offset.
func (s *Segment) offsetOf(org int) int {
	return s.Offset + (org - s.Memory)
}
