package ui

import (
	"reflect"
	"strings"
	"testing"

	"nasgame/internal/catalog"
	"nasgame/internal/domain"
)

func TestQueryFrom(t *testing.T) {
	q := queryFrom(" hol ", anyOption, string(domain.Completed), "Playtime")
	want := catalog.Query{Text: " hol ", Status: domain.Completed, SortBy: catalog.SortPlaytime}
	if q != want {
		t.Fatalf("queryFrom = %+v, want %+v", q, want)
	}
	if q := queryFrom("", string(domain.Installed), anyOption, "unknown"); q.State != domain.Installed || q.SortBy != catalog.SortNone {
		t.Fatalf("queryFrom = %+v", q)
	}
}

func TestOptions(t *testing.T) {
	if got := stateOptions(); !reflect.DeepEqual(got, []string{"All", "Installed", "Not installed"}) {
		t.Fatalf("stateOptions = %v", got)
	}
	if got := statusOptions(); len(got) != 4 || got[0] != anyOption {
		t.Fatalf("statusOptions = %v", got)
	}
	for _, label := range sortOptions() {
		if sortLabelFor(queryFrom("", anyOption, anyOption, label).SortBy) != label {
			t.Fatalf("sort label %q does not round trip", label)
		}
	}
}

func TestCardSize(t *testing.T) {
	if w, h := cardSize(1); w != 120 || h != 180 {
		t.Fatalf("cardSize(1) = %v x %v", w, h)
	}
	if w, _ := cardSize(100); w != 300 {
		t.Fatalf("cardSize(100) width = %v", w)
	}
	if w, _ := cardSize(500); w != 300 {
		t.Fatalf("cardSize clamps, got %v", w)
	}
}

func TestCardSubtitle(t *testing.T) {
	g := domain.Game{Title: "Celeste", State: domain.NotInstalled, Status: domain.NotCompleted, PlaytimeMinutes: 1500}
	if got := cardSubtitle(g); got != "Not installed · Not completed · 25h 0m" {
		t.Fatalf("cardSubtitle = %q", got)
	}
}

func TestResultLine(t *testing.T) {
	if got := resultLine(3, 3, catalog.Query{}); got != "3 games" {
		t.Fatalf("resultLine = %q", got)
	}
	if got := resultLine(1, 3, catalog.Query{Text: "x"}); got != "1 of 3 games" {
		t.Fatalf("resultLine = %q", got)
	}
}

func TestOverviewLines(t *testing.T) {
	lines := overviewLines(catalog.Summarize(domain.Catalog{
		{Title: "A", State: domain.Installed, Status: domain.Completed, PlaytimeMinutes: 90},
	}))
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"Games: 1", "Installed: 1", "1h 30m", "Completed: 1", "Most played: A"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("overview missing %q:\n%s", want, joined)
		}
	}
}
