package core

import (
	"errors"
	"fmt"
)

// TaskType is the short code for a billable role or engagement type. Milestone
// names are drawn from this enum; timecard exports carry the display label.
type TaskType string

const (
	TaskNotAssigned          TaskType = "na"
	TaskProjectCoordinator   TaskType = "pc"
	TaskProjectManager       TaskType = "pm"
	TaskSeniorProjectManager TaskType = "spm"
	TaskArchitect            TaskType = "arc"
	TaskSeniorArchitect      TaskType = "sarc"
	TaskConsultant           TaskType = "con"
	TaskSeniorConsultant     TaskType = "scon"
	TaskPrincipalArchitect   TaskType = "prarc"
	TaskEngagementLead       TaskType = "el"
	TaskFixedPriceEngagement TaskType = "fpe"
)

var ErrUnknownTaskType = errors.New("unknown task type")

var taskTypeLabels = map[TaskType]string{
	TaskNotAssigned:          "Not assigned",
	TaskProjectCoordinator:   "Project Coordinator",
	TaskProjectManager:       "Project Manager",
	TaskSeniorProjectManager: "Senior Project Manager",
	TaskArchitect:            "Architect",
	TaskSeniorArchitect:      "Senior Architect",
	TaskConsultant:           "Consultant",
	TaskSeniorConsultant:     "Senior Consultant",
	TaskPrincipalArchitect:   "Principal Architect",
	TaskEngagementLead:       "Engagement Lead",
	TaskFixedPriceEngagement: "Fixed Price Engagement",
}

var taskTypeByLabel = func() map[string]TaskType {
	m := make(map[string]TaskType, len(taskTypeLabels))
	for code, label := range taskTypeLabels {
		m[label] = code
	}
	return m
}()

func (t TaskType) Valid() bool {
	_, ok := taskTypeLabels[t]
	return ok
}

// Label returns the display name for the task type, or the raw code when the
// code is not part of the enum.
func (t TaskType) Label() string {
	if label, ok := taskTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// TaskTypeByLabel resolves a display label back to its code. Timecard imports
// use this to name auto-created milestones; an unknown label is a hard error,
// never silently defaulted.
func TaskTypeByLabel(label string) (TaskType, error) {
	code, ok := taskTypeByLabel[label]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, label)
	}
	return code, nil
}
