package user

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateDataWritesOnlyKnownFields(t *testing.T) {
	reg := NewRegistry()
	reg.Put(New("u1", "User_u1"))

	var p Patch
	raw := `{"username":"alice","tx":1.5,"afk":true,"id":"hijack","listeningTo":["u2"],"color":"red"}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode patch: %v", err)
	}

	if !reg.UpdateData("u1", p) {
		t.Fatalf("expected update to report a change")
	}

	got, _ := reg.Get("u1")
	want := &User{ID: "u1", Username: "alice", Tx: 1.5, Afk: true, ListeningTo: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateDataNoChange(t *testing.T) {
	reg := NewRegistry()
	u := New("u1", "bob")
	u.Tz = 3
	reg.Put(u)

	if reg.UpdateData("u1", Patch{Username: ptr("bob"), Tz: ptr(3.0)}) {
		t.Fatalf("expected identical values to report no change")
	}
	if reg.UpdateData("missing", Patch{Username: ptr("x")}) {
		t.Fatalf("expected unknown id to be a no-op")
	}
}

func TestUpdateListeningToFiltersSelfAndIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Put(New("a", "A"))

	changed, found := reg.UpdateListeningTo("a", []string{"b", "a", "c", "b", ""})
	if !changed || !found {
		t.Fatalf("expected first update to change, changed=%v found=%v", changed, found)
	}

	u, _ := reg.Get("a")
	if diff := cmp.Diff([]string{"b", "c"}, u.ListeningTo); diff != "" {
		t.Fatalf("listening mismatch (-want +got):\n%s", diff)
	}
	if u.IsListeningTo("a") {
		t.Fatalf("user must never listen to itself")
	}

	changed, _ = reg.UpdateListeningTo("a", []string{"a", "b", "c"})
	if changed {
		t.Fatalf("expected equal filtered list to report no change")
	}

	if _, found := reg.UpdateListeningTo("zzz", []string{"a"}); found {
		t.Fatalf("expected unknown id to report not found")
	}
}

func TestClearListeningTo(t *testing.T) {
	reg := NewRegistry()
	reg.Put(New("a", "A"))
	reg.UpdateListeningTo("a", []string{"b"})

	if !reg.ClearListeningTo("a") {
		t.Fatalf("expected clear on known id to succeed")
	}
	u, _ := reg.Get("a")
	if len(u.ListeningTo) != 0 || u.ListeningTo == nil {
		t.Fatalf("expected empty non-nil list, got %#v", u.ListeningTo)
	}
	if reg.ClearListeningTo("nobody") {
		t.Fatalf("expected clear on unknown id to fail")
	}
}

func TestListenersAndSummary(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"a", "b", "c", "d"} {
		reg.Put(New(id, ""))
	}
	reg.UpdateListeningTo("c", []string{"a"})
	reg.UpdateListeningTo("b", []string{"a", "d"})

	if diff := cmp.Diff([]string{"b", "c"}, reg.Listeners("a")); diff != "" {
		t.Fatalf("listeners mismatch (-want +got):\n%s", diff)
	}

	u, _ := reg.Get("d")
	if got := u.Summary().Username; got != UnnamedUsername {
		t.Fatalf("expected %q for empty name, got %q", UnnamedUsername, got)
	}

	var order []string
	reg.Each(func(u *User) { order = append(order, u.ID) })
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, order); diff != "" {
		t.Fatalf("Each order mismatch (-want +got):\n%s", diff)
	}

	if !reg.Delete("a") || reg.Delete("a") || reg.Len() != 3 {
		t.Fatalf("delete semantics broken")
	}
}
