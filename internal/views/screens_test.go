package views

import (
	"strings"
	"testing"
)

func TestRenderPlannerPanelMarksCursorAndCompletion(t *testing.T) {
	out := RenderPlannerPanel(PlannerPanelData{
		Mode: "local",
		Tasks: []PlannerTaskData{
			{ID: "a", Title: "Math", StartTime: "09:00", Duration: 60},
			{ID: "b", Title: "Physics", StartTime: "11:30", Duration: 30, Completed: true},
		},
		Cursor: 1,
	})
	if !strings.Contains(out, "   1. [ ] 09:00 Math (60 min)") {
		t.Fatalf("expected unselected open task line, got:\n%s", out)
	}
	if !strings.Contains(out, ">  2. [x] 11:30 Physics (30 min)") {
		t.Fatalf("expected selected completed task line, got:\n%s", out)
	}
}

func TestRenderPlannerPanelEmpty(t *testing.T) {
	out := RenderPlannerPanel(PlannerPanelData{Mode: "remote"})
	if !strings.Contains(out, "No tasks yet") || !strings.Contains(out, "store: remote") {
		t.Fatalf("unexpected empty planner:\n%s", out)
	}
}

func TestRenderAlertsPanelNewestFirst(t *testing.T) {
	out := RenderAlertsPanel([]AlertData{
		{Title: "First", StartTime: "08:00", Duration: 10, FiredAt: "08:00:04"},
		{Title: "Second", StartTime: "09:00", Duration: 20, FiredAt: "09:00:02"},
	})
	if strings.Index(out, "Second") > strings.Index(out, "First") {
		t.Fatalf("expected newest alert first:\n%s", out)
	}
}

func TestRenderChatPanelShowsImageAndWaiting(t *testing.T) {
	out := RenderChatPanel(ChatPanelData{
		Messages: []ChatMessageData{
			{Role: "user", Text: "draw a neuron"},
			{Role: "ai", Text: "Here it is", Image: "https://img.example/neuron.png"},
		},
		Waiting:     true,
		SpinnerView: "*",
	})
	for _, want := range []string{"you: draw a neuron", "image: https://img.example/neuron.png", "* thinking..."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in chat panel:\n%s", want, out)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("   "); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
}
