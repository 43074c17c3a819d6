package ui

import (
	"errors"
	"strings"
	"testing"

	"udonsharp/internal/buildpipeline"
)

func TestViewListsScriptsAndTally(t *testing.T) {
	m := newModel("a.uas", "b.uas")
	m.handle(event("a.uas", buildpipeline.StageWrite, buildpipeline.StatusDone))
	m.done = true
	view := m.View()
	for _, want := range []string{"compiling", "[1/2]", "a.uas", "written", "b.uas", "queued", "1 compiled, 0 cached, 0 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if newModel().View() != "" {
		t.Fatalf("empty model should render nothing")
	}
}

func TestViewShowsErrors(t *testing.T) {
	m := newModel("a.uas")
	failed := event("a.uas", buildpipeline.StageWrite, buildpipeline.StatusError)
	failed.Err = errors.New("disk full")
	m.handle(failed)
	m.handle(buildpipeline.Event{Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusError, Err: errors.New("context canceled")})
	view := m.View()
	for _, want := range []string{"disk full", "context canceled", "0 compiled, 0 cached, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUpdateQuitsWhenEventsEnd(t *testing.T) {
	m := newModel("a.uas")
	_, cmd := m.Update(pipelineClosed{})
	if !m.done || cmd == nil {
		t.Fatalf("done=%v cmd=%v", m.done, cmd)
	}
}

func TestFitPathKeepsTail(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.uas", 20, "short.uas"},
		{"a/very/long/path.uas", 11, "...path.uas"},
		{"名前名前.uas", 9, "...前.uas"},
		{"abcdef", 2, "ef"},
	}
	for _, tt := range tests {
		if got := fitPath(tt.in, tt.width); got != tt.want {
			t.Fatalf("fitPath(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
