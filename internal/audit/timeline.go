package audit

import "time"

// TimelineFilters narrows the audit trail. From and To are calendar days; To
// is inclusive.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Section  string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one audit_logs record.
type TimelineRow struct {
	ID      int64          `json:"id"`
	At      time.Time      `json:"at"`
	Actor   string         `json:"actor"`
	Section string         `json:"section"`
	Action  string         `json:"action"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries page navigation for a timeline window.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result is one page of the timeline.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
