package domain

import (
	"fmt"
)

// ActionType is the closed set of captured interaction kinds.
type ActionType string

const (
	ActionClick  ActionType = "click"
	ActionScroll ActionType = "scroll"
)

// ParseActionType validates an action kind at the boundary. Free-form
// strings never reach business logic.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionClick, ActionScroll:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("invalid action type %q", s)
	}
}

// DefaultDurationFrames is the fallback step duration when narration
// synthesis fails or is skipped: 3 seconds at 30 FPS.
const DefaultDurationFrames = 90

// Step is the durable record derived from one captured chunk.
type Step struct {
	ID             int64      `json:"id"`
	ProjectID      int64      `json:"projectId"`
	OrderIndex     int        `json:"orderIndex"`
	ActionType     ActionType `json:"actionType"`
	TargetText     string     `json:"targetText,omitempty"`
	ScriptText     string     `json:"scriptText"`
	AudioURL       string     `json:"audioUrl,omitempty"`
	ImageURL       string     `json:"imageUrl"`
	PosX           int        `json:"posX"`
	PosY           int        `json:"posY"`
	DurationFrames int        `json:"durationFrames"`
}

// ScriptFor derives narration text for a captured interaction. The target
// element's text is preferred; otherwise a generic phrase names the action.
func ScriptFor(action ActionType, targetText string) string {
	if targetText != "" {
		return fmt.Sprintf("Click on %s", targetText)
	}
	return fmt.Sprintf("Perform %s action", action)
}
