package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Name: "desk", Mode: 3, FrameWidth: 640, FrameHeight: 480}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sess.ID == "" {
		t.Fatal("ID should be generated")
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "desk" || got.Mode != 3 || got.FrameWidth != 640 || got.FrameHeight != 480 {
		t.Errorf("Get() = %+v, want fields of %+v", got, sess)
	}
	if got.EndedAt != nil {
		t.Error("EndedAt should be nil for an open session")
	}
}

func TestSessionRepository_CreateRejectsInvalidMode(t *testing.T) {
	s := newTestStore(t)

	if err := s.Sessions().Create(&Session{Mode: 7, FrameWidth: 640, FrameHeight: 480}); err == nil {
		t.Error("expected constraint error for mode 7")
	}
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Sessions().Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		sess := &Session{Name: name, Mode: 2, FrameWidth: 640, FrameHeight: 480, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(list))
	}
	if list[0].Name != "third" || list[2].Name != "first" {
		t.Errorf("List() order = %s, %s, %s; want newest first", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestSessionRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Mode: 2, FrameWidth: 640, FrameHeight: 480}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	frames := []Frame{
		{Seq: 0, Control: &Point{X: 1, Y: 2}},
		{Seq: 1},
	}
	if err := s.Frames().Append(sess.ID, frames); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := repo.Finish(sess.ID, time.Now()); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt should be set after Finish")
	}
	if got.Frames != 2 {
		t.Errorf("Frames = %d, want 2", got.Frames)
	}

	if err := repo.Finish("missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Mode: 1, FrameWidth: 640, FrameHeight: 480}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Frames().Append(sess.ID, []Frame{{Seq: 0}, {Seq: 1}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := repo.Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	n, err := s.Frames().Count(sess.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0 after cascade", n)
	}

	if err := repo.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
