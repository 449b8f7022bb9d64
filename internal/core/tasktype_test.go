package core

import (
	"errors"
	"testing"
)

func TestTaskTypeMappingIsBidirectional(t *testing.T) {
	if len(taskTypeByLabel) != len(taskTypeLabels) {
		t.Fatalf("label map has %d entries, reverse map has %d: duplicate labels?",
			len(taskTypeLabels), len(taskTypeByLabel))
	}
	for code, label := range taskTypeLabels {
		back, err := TaskTypeByLabel(label)
		if err != nil {
			t.Fatalf("label %q: %v", label, err)
		}
		if back != code {
			t.Fatalf("label %q resolved to %q, expected %q", label, back, code)
		}
	}
}

func TestTaskTypeByLabelUnknown(t *testing.T) {
	_, err := TaskTypeByLabel("Chief Vibes Officer")
	if !errors.Is(err, ErrUnknownTaskType) {
		t.Fatalf("expected ErrUnknownTaskType, got %v", err)
	}
}

func TestTaskTypeLabel(t *testing.T) {
	if got := TaskSeniorConsultant.Label(); got != "Senior Consultant" {
		t.Fatalf("expected Senior Consultant, got %q", got)
	}
	// unknown codes fall back to the raw code
	if got := TaskType("zz").Label(); got != "zz" {
		t.Fatalf("expected raw code, got %q", got)
	}
}
