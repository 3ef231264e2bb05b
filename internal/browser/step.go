package browser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Action names a scripted browser interaction.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionClick    Action = "click"
	ActionHover    Action = "hover"
	ActionType     Action = "type"
	ActionScroll   Action = "scroll"
	ActionWaitFor  Action = "wait_for"
	ActionSleep    Action = "sleep"
)

// defaultScrollPixels is used when a page scroll gives no distance.
const defaultScrollPixels = 600

// Step is one scripted interaction.
type Step struct {
	Action   Action
	Selector string
	// Text is typed by ActionType.
	Text string
	// Value is the URL for ActionNavigate and the pixel distance for a page
	// ActionScroll.
	Value string
	// Wait pauses after the step. For ActionSleep it is the whole step.
	Wait time.Duration
	// Required steps stop the run when they fail. Other failures are
	// recorded and the run continues.
	Required bool
}

// ParseAction maps a scenario action name to an Action.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionNavigate:
		return ActionNavigate, true
	case ActionClick:
		return ActionClick, true
	case ActionHover:
		return ActionHover, true
	case ActionType:
		return ActionType, true
	case ActionScroll:
		return ActionScroll, true
	case ActionWaitFor, "wait":
		return ActionWaitFor, true
	case ActionSleep, "pause":
		return ActionSleep, true
	default:
		return "", false
	}
}

// Validate reports a step that cannot run regardless of the page.
func (s Step) Validate() error {
	switch s.Action {
	case ActionNavigate:
		if strings.TrimSpace(s.Value) == "" {
			return fmt.Errorf("navigate step needs a url")
		}
	case ActionClick, ActionHover, ActionType, ActionWaitFor:
		if strings.TrimSpace(s.Selector) == "" {
			return fmt.Errorf("%s step needs a selector", s.Action)
		}
	case ActionScroll:
		if s.Selector == "" && s.Value != "" {
			if _, err := strconv.ParseFloat(s.Value, 64); err != nil {
				return fmt.Errorf("scroll distance %q is not a number", s.Value)
			}
		}
	case ActionSleep:
		if s.Wait <= 0 {
			return fmt.Errorf("sleep step needs a positive wait")
		}
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if s.Wait < 0 {
		return fmt.Errorf("wait must not be negative")
	}
	return nil
}

// Describe renders the step for logs and reports.
func (s Step) Describe() string {
	switch s.Action {
	case ActionNavigate:
		return "navigate " + s.Value
	case ActionSleep:
		return "sleep " + s.Wait.String()
	case ActionScroll:
		if s.Selector == "" {
			return "scroll page " + s.scrollPixelsLabel()
		}
	}
	return string(s.Action) + " " + s.Selector
}

func (s Step) scrollPixels() float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64); err == nil && v != 0 {
		return v
	}
	return defaultScrollPixels
}

func (s Step) scrollPixelsLabel() string {
	return strconv.FormatFloat(s.scrollPixels(), 'f', -1, 64) + "px"
}
