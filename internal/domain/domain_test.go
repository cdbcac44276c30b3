package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDrawingOperation_Validate(t *testing.T) {
	op := DrawingOperation{FromX: 10, FromY: 10, ToX: 50, ToY: 50, Tool: ToolBrush, Size: 8, Color: [3]uint8{255, 0, 0}, Opacity: 200}
	if err := op.Validate(); err != nil {
		t.Fatalf("valid op rejected: %v", err)
	}

	bad := []DrawingOperation{
		{Tool: "spray", Size: 1},
		{Tool: ToolBrush, Size: 0},
		{Tool: ToolEraser, Size: 4, Opacity: 256},
		{Tool: ToolBrush, Size: 4, FromX: math.Inf(1)},
	}
	for i, op := range bad {
		if err := op.Validate(); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("case %d: expected ErrInvalidOperation, got %v", i, err)
		}
	}
}

func TestProfile_NormalizeAndApply(t *testing.T) {
	p := Profile{DisplayName: "   "}.Normalize()
	if p.DisplayName != DefaultDisplayName {
		t.Fatalf("expected default name, got %q", p.DisplayName)
	}

	name, city := "  Mei ", "Taipei"
	p.Apply(ProfilePatch{DisplayName: &name, City: &city})
	if p.DisplayName != "Mei" || p.City == nil || *p.City != "Taipei" {
		t.Fatalf("patch not applied: %+v", p)
	}
	if p.Avatar != nil {
		t.Fatalf("avatar must stay untouched")
	}
}

func TestSession_CountAndFinish(t *testing.T) {
	now := time.Now()
	s := NewSession("A", "B", 60, now)
	if s.ID == "" || s.Outcome != OutcomeRunning {
		t.Fatalf("unexpected new session: %+v", s)
	}

	s.CountStroke(RolePlayerOne)
	s.CountStroke(RolePlayerOne)
	s.CountStroke(RolePlayerTwo)
	s.Finish(OutcomeCompleted, now.Add(time.Minute))

	if s.StrokesPlayerOne != 2 || s.StrokesPlayerTwo != 1 {
		t.Fatalf("stroke counts mismatch: %+v", s)
	}
	if s.EndedAt == nil || s.Outcome != OutcomeCompleted {
		t.Fatalf("finish not applied: %+v", s)
	}
}
