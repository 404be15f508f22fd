package bridge

import (
	"encoding/json"

	"github.com/conneroisu/tabi/internal/browser"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
)

// Event types sent by the page script.
const (
	EventResize    = "resize"
	EventKeyDown   = "keydown"
	EventIntersect = "intersect"
	EventClickTOC  = "click-toc"
	EventToggle    = "toggle"
	EventOverlay   = "overlay"
	EventFrame     = "frame"
)

// Command types sent to the page script.
const (
	CommandObserve         = "observe"
	CommandScrollToElement = "scrollToElement"
	CommandReplaceHash     = "replaceHash"
	CommandScrollNav       = "scrollNav"
	CommandRequestFrame    = "requestFrame"
	CommandState           = "state"
	CommandReload          = "reload"
	CommandError           = "error"
)

// Event is a message from the browser.
type Event struct {
	Type    string           `json:"type"`
	Width   int              `json:"width,omitempty"`
	Key     string           `json:"key,omitempty"`
	ID      string           `json:"id,omitempty"`
	Entries []IntersectEntry `json:"entries,omitempty"`
	Frame   int              `json:"frame,omitempty"`
	Layout  *Layout          `json:"layout,omitempty"`
}

// IntersectEntry reports one heading's visibility change by id.
type IntersectEntry struct {
	ID           string `json:"id"`
	Intersecting bool   `json:"intersecting"`
}

// Layout is the navigation region geometry measured at paint time. Nav and
// Links are viewport rectangles as returned by getBoundingClientRect.
type Layout struct {
	Nav       Rect            `json:"nav"`
	ScrollTop float64         `json:"scrollTop"`
	Links     map[string]Rect `json:"links,omitempty"`
}

// Rect is the wire form of browser.Rect.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) rect() browser.Rect { return browser.Rect{Top: r.Top, Bottom: r.Bottom} }

// Command is a message to the browser.
type Command struct {
	Type       string   `json:"type"`
	ID         string   `json:"id,omitempty"`
	IDs        []string `json:"ids,omitempty"`
	RootMargin string   `json:"rootMargin,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
	Hash       string   `json:"hash,omitempty"`
	Top        float64  `json:"top,omitempty"`
	Frame      int      `json:"frame,omitempty"`
	State      *State   `json:"state,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// State is the controller state the page script mirrors into the DOM.
type State struct {
	Drawer        string `json:"drawer"`
	ActiveHeading string `json:"activeHeading,omitempty"`
	ActiveHref    string `json:"activeHref,omitempty"`
	Hash          string `json:"hash,omitempty"`
}

// DecodeEvent parses and checks a browser message.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, tabierrors.NewProtocolError(tabierrors.ErrCodeMalformedMessage, "malformed event", err)
	}
	switch ev.Type {
	case EventResize:
		if ev.Width <= 0 {
			return Event{}, tabierrors.NewProtocolError(tabierrors.ErrCodeMalformedMessage, "resize requires a positive width", nil).
				WithContext("width", ev.Width)
		}
	case EventKeyDown:
		if ev.Key == "" {
			return Event{}, tabierrors.NewProtocolError(tabierrors.ErrCodeMalformedMessage, "keydown requires a key", nil)
		}
	case EventFrame:
		if ev.Frame <= 0 {
			return Event{}, tabierrors.NewProtocolError(tabierrors.ErrCodeMalformedMessage, "frame requires an id", nil)
		}
	case EventIntersect, EventClickTOC, EventToggle, EventOverlay:
	default:
		return Event{}, tabierrors.NewProtocolError(tabierrors.ErrCodeUnknownMessage, "unknown event type", nil).
			WithContext("type", ev.Type)
	}
	return ev, nil
}
