package models

// Section is a derived, date-keyed view of the conversation: one calendar
// day's messages in creation order. Sections are rebuilt from the in-memory
// window on every change and are never persisted.
type Section struct {
	Title string    `json:"title"`
	Data  []Message `json:"data"`
}
