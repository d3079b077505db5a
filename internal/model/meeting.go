package model

// MeetingStatus is the outcome of meeting analysis for an open message.
type MeetingStatus string

const (
	// MeetingStatusNone means no meeting was detected in the message.
	MeetingStatusNone MeetingStatus = "none"
	// MeetingStatusAvailable means a meeting was detected and fits the calendar.
	MeetingStatusAvailable MeetingStatus = "available"
	// MeetingStatusConflict means a meeting was detected but overlaps an
	// existing calendar event.
	MeetingStatusConflict MeetingStatus = "conflict"
)

// Meeting holds the structured meeting data extracted from a message.
// StartTime and EndTime are RFC 3339 strings as returned by the extractor.
type Meeting struct {
	Title     string   `json:"title"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

// MeetingFlags qualify a detected meeting against the user's calendar.
type MeetingFlags struct {
	IsDuplicate bool `json:"isDuplicate"`
	HasConflict bool `json:"hasConflict"`
}

// MeetingAnalysis is produced once per opened message.
type MeetingAnalysis struct {
	Status  MeetingStatus `json:"status"`
	Meeting *Meeting      `json:"meeting"`
	Flags   MeetingFlags  `json:"flags"`
}
