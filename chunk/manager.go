package chunk

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/internal/ivset"
)

// pushedState is what .pushseg saves and .popseg restores: the active
// segment list and the active-chunk pointer.
type pushedState struct {
	segments []string
	active   *Chunk
}

// Manager owns the ordered list of active segment names, the
// name->descriptor map, the chunk list, the lazily-created active
// chunk, the .pushseg/.popseg stack, the per-module written-range set,
// and the next-free-file-offset cursor used by `.segment ...:size=n`
// clauses that don't specify an explicit offset.
type Manager struct {
	segments      []string
	descriptors   map[string]*Segment
	chunks        []*Chunk
	active        *Chunk
	stack         []pushedState
	written       *ivset.Set
	nextFileOff   int
	overwrite     OverwriteMode
	segmentOrg    int
	segmentHasOrg bool
	segPrefix     string
	warnSink      func(offset, offHi int)
}

// SetWarnSink installs the callback invoked when an OverwriteWarn chunk's
// write overlaps file offsets already written; nil (the default)
// disables reporting, but the write is always allowed through either way.
func (m *Manager) SetWarnSink(fn func(offset, offHi int)) { m.warnSink = fn }

// NewManager returns an empty manager stamping newMode onto every chunk
// it creates.
func NewManager(newMode OverwriteMode) *Manager {
	return &Manager{
		descriptors: make(map[string]*Segment),
		written:     ivset.New(),
		overwrite:   newMode,
	}
}

// SetOverwriteMode changes the mode stamped onto chunks created from now
// on; chunks already materialized keep whatever mode they were created
// with.
func (m *Manager) SetOverwriteMode(mode OverwriteMode) { m.overwrite = mode }

// Chunks returns every chunk created so far, in creation order.
func (m *Manager) Chunks() []*Chunk { return m.chunks }

// ActiveSegments returns the currently active segment name list.
func (m *Manager) ActiveSegments() []string { return m.segments }

// SegmentPrefix sets the string prepended to every subsequent `.segment`
// literal name (`.segmentprefix`). An empty string clears it.
func (m *Manager) SegmentPrefix(p string) { m.segPrefix = p }

// prefixed applies the active segment prefix to a literal segment name.
func (m *Manager) prefixed(name string) string { return m.segPrefix + name }

// Segment returns the descriptor for name, creating an empty one if it
// doesn't exist yet.
func (m *Manager) Segment(name string) *Segment {
	s, ok := m.descriptors[name]
	if !ok {
		s = &Segment{Name: name, Free: ivset.New()}
		m.descriptors[name] = s
	}
	return s
}

// SetSegments switches the active segment list to names (after applying
// the current prefix) and forces a new chunk on next emit (`.segment`).
func (m *Manager) SetSegments(names []string) {
	prefixed := make([]string, len(names))
	for i, n := range names {
		prefixed[i] = m.prefixed(n)
		m.Segment(prefixed[i])
	}
	m.segments = prefixed
	m.active = nil
}

// UpdateSegment applies attrs to the named segment descriptor (after
// prefixing), auto-assigning a file offset from the next-free cursor
// when Size is given without Offset, and installing a default free
// interval covering [memory, memory+size) when both Fill and Size are
// given.
func (m *Manager) UpdateSegment(name string, attrs Attrs) *Segment {
	name = m.prefixed(name)
	s := m.Segment(name)
	if attrs.Bank != nil {
		s.Bank, s.HasBank = *attrs.Bank, true
	}
	if attrs.Memory != nil {
		s.Memory, s.HasMemory = *attrs.Memory, true
	}
	if attrs.Out != nil {
		s.Out = *attrs.Out
	}
	if attrs.Overlay != nil {
		s.Overlay = *attrs.Overlay
	}
	if attrs.Addressing != nil {
		s.Addressing = *attrs.Addressing
	}
	if attrs.ZP != nil {
		s.ZP = *attrs.ZP
	}
	if attrs.Offset != nil {
		s.Offset, s.HasOffset = *attrs.Offset, true
	}
	if attrs.Size != nil {
		s.Size, s.HasSize = *attrs.Size, true
		if attrs.Offset == nil {
			s.Offset, s.HasOffset = m.nextFileOff, true
		}
		m.nextFileOff = s.Offset + s.Size
	}
	if attrs.Fill != nil {
		s.Fill, s.HasFill = *attrs.Fill, true
		if s.HasSize && s.HasMemory {
			s.Free.Add(s.Memory, s.Memory+s.Size)
		}
	}
	if glog.V(1) {
		glog.Infof("segment %q: attrs updated, memory=%#x(%v) size=%#x(%v) offset=%#x(%v)",
			name, s.Memory, s.HasMemory, s.Size, s.HasSize, s.Offset, s.HasOffset)
	}
	return s
}

// EnsureChunk materializes the active chunk if one isn't already open,
// snapping the currently active segments, overwrite mode, and (if set)
// origin/name. Chunk creation is lazy: nothing materializes until the
// first byte is written or PC is asked for.
func (m *Manager) EnsureChunk() *Chunk {
	if m.active != nil {
		return m.active
	}
	c := &Chunk{
		Segments:  append([]string{}, m.segments...),
		Overwrite: m.overwrite,
	}
	if m.segmentHasOrg {
		c.Org, c.HasOrg = m.segmentOrg, true
	}
	m.chunks = append(m.chunks, c)
	m.active = c
	if glog.V(1) {
		glog.Infof("chunk: new chunk #%d segments=%v org=%#x(%v)", len(m.chunks)-1, c.Segments, c.Org, c.HasOrg)
	}
	return c
}

// Active returns the currently open chunk, or nil if none is open.
func (m *Manager) Active() *Chunk { return m.active }

// SetOrg sets the current origin. If a chunk is already open and its end
// of data equals org, compilation continues in the same chunk (".org n"
// reuses the existing chunk when the new origin matches its
// end-of-data); otherwise a new chunk is forced on next emit.
func (m *Manager) SetOrg(org int) {
	if m.active != nil && m.active.HasOrg && m.active.Org+len(m.active.Data) == org {
		m.segmentOrg, m.segmentHasOrg = org, true
		return
	}
	m.segmentOrg, m.segmentHasOrg = org, true
	m.active = nil
}

// Reloc clears the current origin (enters relocatable mode) and forces a
// new chunk.
func (m *Manager) Reloc() {
	m.segmentHasOrg = false
	m.segmentOrg = 0
	m.active = nil
}

// CurrentOrg returns the current emit address: the end of the open
// chunk's data when a chunk is open, otherwise the origin a freshly
// opened chunk would inherit. ok is false in relocatable mode.
func (m *Manager) CurrentOrg() (org int, ok bool) {
	if m.active != nil {
		return m.active.Org + len(m.active.Data), m.active.HasOrg
	}
	return m.segmentOrg, m.segmentHasOrg
}

// PC returns a PC-relative expression for the current emit position,
// materializing the active chunk if necessary.
func (m *Manager) PC() *expr.Expr {
	return m.EnsureChunk().PC()
}

// PushSeg saves (active segments, active chunk) on the stack. If segs is
// non-empty, it also switches to that segment list (`.pushseg
// [segs...]`).
func (m *Manager) PushSeg(segs []string) {
	m.stack = append(m.stack, pushedState{segments: m.segments, active: m.active})
	if len(segs) > 0 {
		m.SetSegments(segs)
	}
}

// PopSeg restores the most recently pushed (active segments, active
// chunk) pair.
func (m *Manager) PopSeg() error {
	if len(m.stack) == 0 {
		return errors.New(".popseg without .pushseg")
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.segments = top.segments
	m.active = top.active
	return nil
}

// Write appends b to the active chunk (materializing one if needed),
// tracking the written file-offset range if the chunk has a fixed
// origin translatable via an active segment, and enforcing the
// overwrite mode on collisions.
func (m *Manager) Write(b []byte) error {
	c := m.EnsureChunk()
	start := len(c.Data)
	c.append(b...)
	if !c.HasOrg {
		return nil
	}
	lo := c.Org + start
	hi := lo + len(b)
	off, ok := m.OffsetOf(lo)
	if !ok {
		return nil
	}
	offHi := off + (hi - lo)
	overlap := m.written.Overlaps(off, offHi)
	switch {
	case c.Overwrite == OverwriteForbid && overlap:
		return errors.Errorf("overlapping write at file offset [%d, %d)", off, offHi)
	case c.Overwrite == OverwriteWarn && overlap && m.warnSink != nil:
		m.warnSink(off, offHi)
	}
	m.written.Add(off, offHi)
	return nil
}

// OffsetOf translates a memory address to a file offset via the unique
// active segment that contains it. ok is false if no active segment
// contains org (e.g. a pure-RAM segment), in which case written-range
// tracking is skipped by the caller.
func (m *Manager) OffsetOf(org int) (offset int, ok bool) {
	for _, name := range m.segments {
		s := m.descriptors[name]
		if s != nil && s.containsOrg(org) {
			return s.offsetOf(org), true
		}
	}
	return 0, false
}

// Free reserves n bytes at the current origin for the linker (`.free`):
// it requires exactly one active segment to contain the current org,
// closes any open chunk, appends [org, org+n) to that segment's free
// list, and advances the origin by n.
func (m *Manager) Free(n int) error {
	org, hasOrg := m.CurrentOrg()
	if !hasOrg {
		return errors.New(".free in .reloc mode")
	}
	var target *Segment
	count := 0
	for _, name := range m.segments {
		s := m.descriptors[name]
		if s != nil && s.containsOrg(org) {
			target = s
			count++
		}
	}
	if count != 1 {
		return errors.Errorf(".free requires exactly one active segment containing org %d, found %d", org, count)
	}
	m.active = nil
	target.Free.Add(org, org+n)
	m.SetOrg(org + n)
	return nil
}
