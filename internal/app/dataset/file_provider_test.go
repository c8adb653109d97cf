package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestFileProviderPicksNewest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "data.csv")
	newer := filepath.Join(dir, "output.csv")
	missing := filepath.Join(dir, "coordinates.csv")

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, older, "h\n1\n", base)
	writeFile(t, newer, "x,y\n1,2\n3,4\n5,6\n", base.Add(time.Minute))

	snap, err := NewFileProvider([]string{older, newer, missing}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if !snap.Exists || snap.Path != newer {
		t.Fatalf("expected newest file %s, got %+v", newer, snap)
	}
	if snap.Rows != 4 || snap.Size != int64(len("x,y\n1,2\n3,4\n5,6\n")) {
		t.Fatalf("unexpected rows/size: %+v", snap)
	}
	if !snap.ModifiedTime.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected mtime %v", snap.ModifiedTime)
	}
}

func TestFileProviderMissing(t *testing.T) {
	snap, err := NewFileProvider([]string{filepath.Join(t.TempDir(), "nope.csv")}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Exists {
		t.Fatalf("expected missing snapshot, got %+v", snap)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"exists":false,"modifiedTime":null,"size":0,"rows":0}`; string(raw) != want {
		t.Fatalf("unexpected wire form %s", raw)
	}
}

func TestChangedFrom(t *testing.T) {
	t1 := time.Unix(100, 0)
	t2 := time.Unix(200, 0)
	a := Snapshot{Exists: true, ModifiedTime: &t1, Size: 10}

	cases := []struct {
		name string
		cur  Snapshot
		prev Snapshot
		want bool
	}{
		{"appeared", a, Missing, true},
		{"vanished", Missing, a, false},
		{"same", a, a, false},
		{"touched", Snapshot{Exists: true, ModifiedTime: &t2, Size: 10}, a, true},
		{"resized", Snapshot{Exists: true, ModifiedTime: &t1, Size: 11}, a, true},
	}
	for _, tc := range cases {
		if got := tc.cur.ChangedFrom(tc.prev); got != tc.want {
			t.Errorf("%s: ChangedFrom=%v, want %v", tc.name, got, tc.want)
		}
	}
}

type sequenceProvider struct {
	snaps []Snapshot
}

func (p *sequenceProvider) Snapshot(context.Context) (Snapshot, error) {
	s := p.snaps[0]
	if len(p.snaps) > 1 {
		p.snaps = p.snaps[1:]
	}
	return s, nil
}

func TestWatcherAnnouncesOnlyChanges(t *testing.T) {
	t1 := time.Unix(100, 0)
	t2 := time.Unix(200, 0)
	a := Snapshot{Exists: true, ModifiedTime: &t1, Size: 1, Path: "data.csv"}
	b := Snapshot{Exists: true, ModifiedTime: &t2, Size: 1, Path: "data.csv"}

	p := &sequenceProvider{snaps: []Snapshot{Missing, a, a, Missing, a, b}}

	var announced []bool
	w := NewWatcher(p, time.Hour, func(_ Snapshot, changed bool) {
		announced = append(announced, changed)
	})

	w.Prime(context.Background())
	for range 5 {
		w.Poll(context.Background())
	}

	got := make([]string, len(announced))
	for i, c := range announced {
		got[i] = map[bool]string{true: "Y", false: "n"}[c]
	}
	if strings.Join(got, "") != "nYnnnY" {
		t.Fatalf("unexpected announce sequence %v", got)
	}
}
