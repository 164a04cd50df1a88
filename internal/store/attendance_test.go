package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testScheduledAt = time.Date(2025, 6, 21, 2, 30, 0, 0, time.UTC)

func TestAttendanceActiveNone(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	sess, err := as.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestAttendanceCreate(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	sess, err := as.Create("s1", testScheduledAt, []string{"B", "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.PublicID != "s1" {
		t.Errorf("public id = %q, want s1", sess.PublicID)
	}
	if !sess.ScheduledAt.Equal(testScheduledAt) {
		t.Errorf("scheduled_at = %v, want %v", sess.ScheduledAt, testScheduledAt)
	}
	if want := []string{"B", "A"}; !equalNames(sess.Pending, want) {
		t.Errorf("pending = %v, want %v", sess.Pending, want)
	}

	active, err := as.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.PublicID != "s1" {
		t.Fatalf("active = %+v, want s1", active)
	}
}

func TestAttendanceCreateReplacesPrevious(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	as.Create("s1", testScheduledAt, []string{"A", "B"})
	as.RemoveMember("A")
	if _, err := as.Create("s2", testScheduledAt.Add(time.Hour), []string{"C"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	old, err := as.GetByPublicID("s1")
	if err != nil {
		t.Fatalf("get old: %v", err)
	}
	if old != nil {
		t.Error("superseded session should be gone")
	}

	active, _ := as.Active()
	if want := []string{"C"}; !equalNames(active.Pending, want) {
		t.Errorf("pending = %v, want %v", active.Pending, want)
	}
}

func TestAttendanceCreateDuplicateLeavesPriorSession(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	as.Create("s1", testScheduledAt, []string{"A"})
	if _, err := as.Create("s2", testScheduledAt, []string{"X", "X"}); err == nil {
		t.Fatal("expected error for duplicate pending names")
	}
	active, _ := as.Active()
	if active == nil || active.PublicID != "s1" {
		t.Fatalf("active = %+v, want untouched s1", active)
	}
}

func TestAttendanceRemoveMemberIdempotent(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))
	as.Create("s1", testScheduledAt, []string{"A", "B"})

	ok, err := as.RemoveMember("A")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !ok {
		t.Error("expected first removal to report a change")
	}

	ok, err = as.RemoveMember("A")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if ok {
		t.Error("expected second removal to be a no-op")
	}

	ok, err = as.RemoveMember("Nobody")
	if err != nil || ok {
		t.Errorf("unknown name: ok=%v err=%v, want false nil", ok, err)
	}

	active, _ := as.Active()
	if want := []string{"B"}; !equalNames(active.Pending, want) {
		t.Errorf("pending = %v, want %v", active.Pending, want)
	}
}

func TestAttendanceRemoveWithoutSession(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	ok, err := as.RemoveMember("A")
	if err != nil || ok {
		t.Errorf("ok=%v err=%v, want false nil", ok, err)
	}
}

func TestAttendanceRemoveFromSessionScoped(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))
	as.Create("s1", testScheduledAt, []string{"A"})
	as.Create("s2", testScheduledAt, []string{"A"})

	ok, err := as.RemoveFromSession("s1", "A")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok {
		t.Error("removal against superseded session should not touch the active one")
	}
	active, _ := as.Active()
	if !active.HasPending("A") {
		t.Error("A should still be pending in s2")
	}
}

func TestAttendanceConcurrentRemovalsDisjointNames(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("member-%02d", i)
	}
	as.Create("s1", testScheduledAt, names)

	var wg sync.WaitGroup
	for _, n := range names[:10] {
		wg.Add(2)
		go func(name string) {
			defer wg.Done()
			if _, err := as.RemoveMember(name); err != nil {
				t.Errorf("remove %s: %v", name, err)
			}
		}(n)
		go func(name string) {
			defer wg.Done()
			if _, err := as.RemoveFromSession("s1", name); err != nil {
				t.Errorf("remove %s: %v", name, err)
			}
		}(n)
	}
	wg.Wait()

	active, _ := as.Active()
	if want := names[10:]; !equalNames(active.Pending, want) {
		t.Errorf("pending = %v, want %v", active.Pending, want)
	}
}

func TestAttendanceRolloverTalliesLateMembers(t *testing.T) {
	db := openTestDB(t)
	as := NewAttendanceStore(db)
	ts := NewTallyStore(db)

	as.Create("s1", testScheduledAt, []string{"A", "B", "C"})
	as.RemoveMember("B")

	lateAt := testScheduledAt.Add(10 * time.Minute)
	late, next, err := as.Rollover("s1", lateAt, "s2", testScheduledAt.Add(7*24*time.Hour), []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if want := []string{"A", "C"}; !equalNames(late, want) {
		t.Errorf("late = %v, want %v", late, want)
	}
	if next.PublicID != "s2" || len(next.Pending) != 3 {
		t.Errorf("next = %+v, want s2 with 3 pending", next)
	}

	as.Rollover("s2", lateAt, "s3", testScheduledAt, []string{"A"})

	tallies, err := ts.List()
	if err != nil {
		t.Fatalf("list tallies: %v", err)
	}
	counts := map[string]int{}
	for _, tl := range tallies {
		counts[tl.Name] = tl.Count
	}
	if counts["A"] != 2 || counts["B"] != 1 || counts["C"] != 2 {
		t.Errorf("counts = %v, want A:2 B:1 C:2", counts)
	}
	if tallies[0].Count != 2 {
		t.Errorf("first tally count = %d, want highest first", tallies[0].Count)
	}
}

func TestAttendanceRolloverStale(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))
	as.Create("s1", testScheduledAt, []string{"A"})

	_, _, err := as.Rollover("", testScheduledAt, "s2", testScheduledAt, []string{"A"})
	if !errors.Is(err, ErrStaleSession) {
		t.Fatalf("err = %v, want ErrStaleSession", err)
	}
	active, _ := as.Active()
	if active.PublicID != "s1" {
		t.Errorf("active = %s, want s1 untouched", active.PublicID)
	}
}

func TestAttendanceRolloverFromEmpty(t *testing.T) {
	as := NewAttendanceStore(openTestDB(t))

	late, next, err := as.Rollover("", testScheduledAt, "s1", testScheduledAt, []string{"A"})
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if len(late) != 0 {
		t.Errorf("late = %v, want none", late)
	}
	if next.PublicID != "s1" {
		t.Errorf("next = %s, want s1", next.PublicID)
	}
}
