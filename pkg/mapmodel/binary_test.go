package mapmodel

import (
	"bytes"
	"testing"
)

func TestWriteReadBinaryRoundTrip(t *testing.T) {
	m, err := Build(tJunction())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteBinary(&buf, m); err != nil {
		t.Fatalf("WriteBinary() error = %v", err)
	}

	got, err := ReadBinary(&buf)
	if err != nil {
		t.Fatalf("ReadBinary() error = %v", err)
	}

	if len(got.Intersections) != len(m.Intersections) {
		t.Errorf("Intersections = %d, want %d", len(got.Intersections), len(m.Intersections))
	}
	if len(got.Roads) != len(m.Roads) {
		t.Errorf("Roads = %d, want %d", len(got.Roads), len(m.Roads))
	}
	if len(got.Edges) != len(m.Edges) {
		t.Errorf("Edges = %d, want %d", len(got.Edges), len(m.Edges))
	}

	for i := range got.Roads {
		want := m.Roads[i]
		gotRoad := got.Roads[i]
		if len(gotRoad.Points) != len(want.Points) {
			t.Errorf("road %d: Points = %d, want %d", i, len(gotRoad.Points), len(want.Points))
		}
		if gotRoad.Class != want.Class {
			t.Errorf("road %d: Class = %v, want %v", i, gotRoad.Class, want.Class)
		}
	}
}

func TestReadBinaryRejectsBadMagic(t *testing.T) {
	if _, err := ReadBinary(bytes.NewReader(make([]byte, 32))); err == nil {
		t.Error("expected an error for a buffer with no valid header")
	}
}
