package chunk_test

import (
	"testing"

	"github.com/shicks/js65/chunk"
)

func newCodeSegment(m *chunk.Manager) {
	size := 0x4000
	mem := 0x8000
	off := 0
	m.UpdateSegment("CODE", chunk.Attrs{Size: &size, Memory: &mem, Offset: &off})
	m.SetSegments([]string{"CODE"})
}

func TestZeroPageAutoSizingEmission(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	if err := m.Write([]byte{0xA5, 0x10, 0xAD, 0x00, 0x10}); err != nil {
		t.Fatal(err)
	}
	chunks := m.Chunks()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	want := []byte{0xA5, 0x10, 0xAD, 0x00, 0x10}
	if string(c.Data) != string(want) {
		t.Fatalf("got % x, want % x", c.Data, want)
	}
	if !c.HasOrg || c.Org != 0x8000 {
		t.Fatalf("expected org 0x8000, got %+v", c)
	}
}

func TestOverlappingWriteForbidden(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	if err := m.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	m.SetOrg(0x8002)
	if err := m.Write([]byte{5, 6}); err == nil {
		t.Fatal("expected overwrite error")
	}
}

func TestOverlappingWriteAllowed(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteAllow)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	if err := m.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	m.SetOrg(0x8002)
	if err := m.Write([]byte{5, 6}); err != nil {
		t.Fatalf("overwrite should be allowed, got %v", err)
	}
}

func TestFreeBookkeeping(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	if err := m.Write(make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	if err := m.Free(0x100); err != nil {
		t.Fatal(err)
	}
	org, ok := m.CurrentOrg()
	if !ok || org != 0x8110 {
		t.Fatalf("expected org 0x8110 after free, got %d (%v)", org, ok)
	}
	seg := m.Segment("CODE")
	ivs := seg.Free.Intervals()
	if len(ivs) != 1 || ivs[0].Lo != 0x8010 || ivs[0].Hi != 0x8110 {
		t.Fatalf("unexpected free list: %+v", ivs)
	}
}

func TestFreeInRelocModeFails(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.Reloc()
	if err := m.Free(10); err == nil {
		t.Fatal("expected .free in .reloc mode error")
	}
}

func TestPushPopSeg(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	_ = m.Write([]byte{1})
	before := m.Active()

	size := 0x2000
	mem := 0xC000
	off := 0x4000
	m.UpdateSegment("DATA", chunk.Attrs{Size: &size, Memory: &mem, Offset: &off})

	m.PushSeg([]string{"DATA"})
	if got := m.ActiveSegments(); len(got) != 1 || got[0] != "DATA" {
		t.Fatalf("expected active segment DATA, got %v", got)
	}
	if err := m.PopSeg(); err != nil {
		t.Fatal(err)
	}
	got := m.ActiveSegments()
	if len(got) != 1 || got[0] != "CODE" {
		t.Fatalf("expected restored CODE segment, got %v", got)
	}
	if m.Active() != before {
		t.Fatal("expected active chunk pointer restored")
	}
}

func TestPopSegWithoutPushErrors(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	if err := m.PopSeg(); err == nil {
		t.Fatal("expected .popseg without .pushseg error")
	}
}

func TestSegmentPrefix(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	m.SegmentPrefix("BANK0_")
	m.SetSegments([]string{"CODE"})
	if got := m.ActiveSegments(); got[0] != "BANK0_CODE" {
		t.Fatalf("expected prefixed segment name, got %v", got)
	}
}

func TestOrgReusesChunkAtEndOfData(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	_ = m.Write([]byte{1, 2, 3, 4})
	m.SetOrg(0x8004) // equals end-of-data: same chunk continues
	c := m.EnsureChunk()
	if len(m.Chunks()) != 1 {
		t.Fatalf("expected still 1 chunk, got %d", len(m.Chunks()))
	}
	_ = c
}

func TestOrgForcesNewChunkWhenNotContiguous(t *testing.T) {
	m := chunk.NewManager(chunk.OverwriteForbid)
	newCodeSegment(m)
	m.SetOrg(0x8000)
	_ = m.Write([]byte{1, 2, 3, 4})
	m.SetOrg(0x9000) // not contiguous: forces a new chunk
	m.EnsureChunk()
	if len(m.Chunks()) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(m.Chunks()))
	}
}
