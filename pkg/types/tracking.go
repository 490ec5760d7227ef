package types

import (
	"net/http"
	"time"
)

// FilterEvent describes one answered filter request.
type FilterEvent struct {
	WidgetId    string          `json:"widget"`
	TemplateRef string          `json:"template"`
	Mode        CombinationMode `json:"mode"`
	Selections  Selections      `json:"selections,omitempty"`
	Page        int             `json:"page"`
	Total       int             `json:"total"`
	Referer     string          `json:"referer,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	Ip          string          `json:"ip,omitempty"`
	Time        time.Time       `json:"time"`
}

type Tracking interface {
	TrackFilter(event *FilterEvent, r *http.Request)
	Close() error
}
