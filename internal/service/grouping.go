package service

import (
	"sort"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
)

// GroupByDate partitions messages into date-ordered sections. Messages
// are sorted by parsed date ascending (stable, so equal dates keep
// their input order), bucketed by exact date-string equality, and the
// sections themselves are ordered ascending by parsed date.
//
// Unparsable date strings sort as the zero time, i.e. before every
// valid date.
func GroupByDate(messages []models.Message) []models.Section {
	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseDate(sorted[i].Date).Before(parseDate(sorted[j].Date))
	})

	var sections []models.Section
	index := make(map[string]int)
	for _, msg := range sorted {
		i, ok := index[msg.Date]
		if !ok {
			i = len(sections)
			index[msg.Date] = i
			sections = append(sections, models.Section{Title: msg.Date})
		}
		sections[i].Data = append(sections[i].Data, msg)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return parseDate(sections[i].Title).Before(parseDate(sections[j].Title))
	})
	return sections
}

// DateLabel renders a section title for display: "Today", "Yesterday",
// or a short formatted date. Unparsable titles are returned verbatim.
func DateLabel(title string, now time.Time) string {
	today := now.Format(constants.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(constants.DateLayout)

	switch title {
	case today:
		return "Today"
	case yesterday:
		return "Yesterday"
	}

	parsed, err := time.Parse(constants.DateLayout, title)
	if err != nil {
		return title
	}
	return parsed.Format("Jan 2, 2006")
}

func parseDate(date string) time.Time {
	parsed, err := time.Parse(constants.DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
