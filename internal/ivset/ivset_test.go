package ivset_test

import (
	"reflect"
	"testing"

	"github.com/shicks/js65/internal/ivset"
)

func TestAddMerge(t *testing.T) {
	s := ivset.New()
	s.Add(10, 20)
	s.Add(30, 40)
	s.Add(20, 30) // bridges the gap, should merge into one interval
	want := []ivset.Interval{{10, 40}}
	if got := s.Intervals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAddIdempotent(t *testing.T) {
	s := ivset.New()
	s.Add(5, 15)
	s.Add(5, 15)
	want := []ivset.Interval{{5, 15}}
	if got := s.Intervals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAddOverlap(t *testing.T) {
	s := ivset.New()
	s.Add(0, 10)
	s.Add(5, 25)
	s.Add(100, 110)
	want := []ivset.Interval{{0, 25}, {100, 110}}
	if got := s.Intervals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHas(t *testing.T) {
	s := ivset.New()
	s.Add(10, 20)
	s.Add(30, 40)
	cases := []struct {
		x    int
		want bool
	}{
		{9, false}, {10, true}, {19, true}, {20, false},
		{29, false}, {35, true}, {40, false},
	}
	for _, c := range cases {
		if got := s.Has(c.x); got != c.want {
			t.Errorf("Has(%d) = %v, want %v", c.x, got, c.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	s := ivset.New()
	s.Add(10, 20)
	if !s.Overlaps(15, 25) {
		t.Error("expected overlap")
	}
	if s.Overlaps(20, 30) {
		t.Error("did not expect overlap on adjacent half-open range")
	}
	if s.Overlaps(0, 10) {
		t.Error("did not expect overlap on adjacent half-open range")
	}
}

func TestDegenerate(t *testing.T) {
	s := ivset.New()
	s.Add(5, 5)
	if s.Len() != 0 {
		t.Fatalf("expected empty set after degenerate add, got %v", s.Intervals())
	}
}
