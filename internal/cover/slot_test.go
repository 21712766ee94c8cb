package cover

import (
	"context"
	"image"
	"sync"
	"testing"

	"nasgame/internal/domain"
)

func TestSlotDiscardsStaleResult(t *testing.T) {
	var s Slot
	old := s.Begin()
	cur := s.Begin()

	stale := newHandle("old.png", "", MIMEPNG, []byte{1})
	if s.Apply(old, stale, func() { t.Fatal("stale result shown") }) {
		t.Fatalf("stale ticket applied")
	}
	if !stale.Released() {
		t.Fatalf("stale handle must be released")
	}

	fresh := newHandle("new.png", "", MIMEPNG, []byte{2})
	shown := false
	if !s.Apply(cur, fresh, func() { shown = true }) || !shown {
		t.Fatalf("current ticket not applied")
	}
	if s.Current() != fresh {
		t.Fatalf("Current() = %v", s.Current())
	}
}

func TestSlotReleasesSupersededHandle(t *testing.T) {
	var s Slot
	a := newHandle("a.png", "", MIMEPNG, []byte{1})
	s.Apply(s.Begin(), a, nil)
	b := newHandle("b.png", "", MIMEPNG, []byte{2})
	s.Apply(s.Begin(), b, nil)
	if !a.Released() || b.Released() {
		t.Fatalf("rebinding must release only the old handle")
	}
}

func TestSlotCloseReleasesAndRejects(t *testing.T) {
	var s Slot
	h := newHandle("a.png", "", MIMEPNG, []byte{1})
	s.Apply(s.Begin(), h, nil)
	pending := s.Begin()
	s.Close()
	if !h.Released() || s.Current() != nil {
		t.Fatalf("Close must release the displayed handle")
	}
	late := newHandle("late.png", "", MIMEPNG, []byte{1})
	if s.Apply(pending, late, nil) || !late.Released() {
		t.Fatalf("result arriving after Close must be dropped")
	}
}

func TestBindShowsFallbackForMissingCover(t *testing.T) {
	var s Slot
	r := NewResolver(t.TempDir())
	var got *Handle
	var img image.Image
	ok := Bind(context.Background(), &s, s.Begin(), r, domain.NewGame("Celeste"), func(h *Handle, i image.Image) { got, img = h, i })
	if !ok || got == nil || !got.IsFallback() || img == nil {
		t.Fatalf("Bind = %v, handle %v", ok, got)
	}
}

func TestBindAfterCloseIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Celeste.png", pngBytes(t, 2, 2))
	var s Slot
	pending := s.Begin()
	s.Close()
	if Bind(context.Background(), &s, pending, NewResolver(dir), domain.NewGame("Celeste"), func(*Handle, image.Image) {
		t.Fatal("closed slot showed a cover")
	}) {
		t.Fatalf("Bind applied to a closed slot")
	}
}

func TestSlotsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	for _, title := range []string{"A", "B", "C", "D"} {
		writeImage(t, dir, title+".png", pngBytes(t, 2, 2))
	}
	r := NewResolver(dir)
	slots := make([]Slot, 8)
	var wg sync.WaitGroup
	for i := range slots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := string(rune('A' + i%4))
			Bind(context.Background(), &slots[i], slots[i].Begin(), r, domain.NewGame(title), nil)
		}(i)
	}
	wg.Wait()
	for i := range slots {
		h := slots[i].Current()
		if h == nil || h.IsFallback() || h.Name() != string(rune('A'+i%4))+".png" {
			t.Fatalf("slot %d shows %v", i, h)
		}
	}
	if slots[0].Current() == slots[4].Current() {
		t.Fatalf("slots sharing a title must not share a handle")
	}
}

func TestBindLatestRequestWins(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "X.png", pngBytes(t, 2, 2))
	writeImage(t, dir, "Y.png", pngBytes(t, 3, 3))
	r := NewResolver(dir)
	for i := 0; i < 200; i++ {
		var s Slot
		var last string
		show := func(h *Handle, _ image.Image) { last = h.Name() }
		var wg sync.WaitGroup
		for _, title := range []string{"X", "Y"} {
			tk := s.Begin()
			wg.Add(1)
			go func(title string) {
				defer wg.Done()
				Bind(context.Background(), &s, tk, r, domain.NewGame(title), show)
			}(title)
		}
		wg.Wait()
		if last != "Y.png" {
			t.Fatalf("run %d: card shows %q after rebinding to Y", i, last)
		}
		if h := s.Current(); h == nil || h.Name() != "Y.png" {
			t.Fatalf("run %d: Current() = %v", i, h)
		}
	}
}
