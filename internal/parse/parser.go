// Package parse turns one line of free text into a structured task draft.
// Extraction is deterministic and layered: tags, then duration, then date
// keywords, then clock time, each step consuming its matched substring so the
// remaining text becomes the title. The parser never fails; fields that do
// not resolve stay at their zero value.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/flyt/internal/domain"
)

// Draft is the best-effort result of parsing one input line. It carries no
// identity; callers either persist it as a new task or discard it.
type Draft struct {
	Title            string
	ScheduledDate    *time.Time
	ScheduledTime    string
	EstimatedMinutes int
	Tags             []string
	Category         domain.Category
}

var tagPattern = regexp.MustCompile(`#\w+`)

// durationPatterns are tried in order; the first hit wins and only its
// substring is removed, so "for 30 min re: 2h project" keeps the "2h".
var durationPatterns = []struct {
	re      *regexp.Regexp
	minutes func(m []string) int
}{
	{regexp.MustCompile(`(?i)for\s+(\d+)\s*h(?:our)?s?`), func(m []string) int { return atoi(m[1]) * 60 }},
	{regexp.MustCompile(`(?i)for\s+(\d+)\s*m(?:in(?:ute)?s?)?`), func(m []string) int { return atoi(m[1]) }},
	{regexp.MustCompile(`(?i)(\d+)\s*h(?:our)?s?\s+(\d+)\s*m`), func(m []string) int { return atoi(m[1])*60 + atoi(m[2]) }},
	{regexp.MustCompile(`(?i)(\d+)h`), func(m []string) int { return atoi(m[1]) * 60 }},
	{regexp.MustCompile(`(?i)(\d+)m(?:in)?`), func(m []string) int { return atoi(m[1]) }},
}

var (
	todayPattern    = regexp.MustCompile(`(?i)today`)
	tomorrowPattern = regexp.MustCompile(`(?i)tomorrow`)
	thisWeekPattern = regexp.MustCompile(`(?i)this week`)

	// Submatches: at-prefix, hour, minutes, am/pm marker.
	clockPattern = regexp.MustCompile(`(?i)(at\s+)?(\d{1,2})(:\d{2})?\s*(am|pm)?`)

	titleTrimPattern  = regexp.MustCompile(`^[\s,.\-]+|[\s,.\-]+$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var workKeywords = []string{"meeting", "client", "project", "work", "review", "code", "design"}

var lifeKeywords = []string{"gym", "doctor", "grocery", "home", "personal", "family"}

// Parse extracts structured attributes from input. Relative date keywords
// resolve against now. Parse is total: any input yields a draft, and a title
// that cleans down to nothing falls back to the raw input.
func Parse(input string, now time.Time) Draft {
	var draft Draft
	lower := strings.ToLower(input)
	working := input

	for _, match := range tagPattern.FindAllString(working, -1) {
		draft.Tags = append(draft.Tags, match[1:])
	}
	working = tagPattern.ReplaceAllString(working, "")

	for _, pattern := range durationPatterns {
		m := pattern.re.FindStringSubmatch(working)
		if m == nil {
			continue
		}
		draft.EstimatedMinutes = pattern.minutes(m)
		working = strings.Replace(working, m[0], "", 1)
		break
	}

	switch {
	case strings.Contains(lower, "today"):
		date := dateOnly(now)
		draft.ScheduledDate = &date
		working = replaceFirst(todayPattern, working)
	case strings.Contains(lower, "tomorrow"):
		date := dateOnly(now.AddDate(0, 0, 1))
		draft.ScheduledDate = &date
		working = replaceFirst(tomorrowPattern, working)
	case strings.Contains(lower, "this week"):
		// Recognized and stripped, but carries no resolvable date.
		working = replaceFirst(thisWeekPattern, working)
	}

	if clock, matched, ok := extractClockTime(working); ok {
		draft.ScheduledTime = clock
		working = strings.Replace(working, matched, "", 1)
	}

	title := whitespacePattern.ReplaceAllString(working, " ")
	title = titleTrimPattern.ReplaceAllString(title, "")
	if title == "" {
		title = input
	}
	draft.Title = title

	draft.Category = inferCategory(lower)
	return draft
}

// DeriveBucket maps a draft's scheduled date onto a bucket: today's date is
// today, the next day is tomorrow, any other date lands in this_week, and no
// date at all means backlog.
func DeriveBucket(draft Draft, now time.Time) domain.Status {
	if draft.ScheduledDate == nil {
		return domain.StatusBacklog
	}
	switch dateOnly(*draft.ScheduledDate) {
	case dateOnly(now):
		return domain.StatusToday
	case dateOnly(now.AddDate(0, 0, 1)):
		return domain.StatusTomorrow
	default:
		return domain.StatusThisWeek
	}
}

// extractClockTime finds the first plausible clock-time mention. A bare
// integer is not enough: a candidate must carry an "at" prefix, explicit
// minutes, or an am/pm marker, otherwise leftovers like the "2" of "2h
// project" would be read as two o'clock.
func extractClockTime(text string) (clock, matched string, ok bool) {
	for _, m := range clockPattern.FindAllStringSubmatch(text, -1) {
		atPrefix, hourPart, minutePart, period := m[1], m[2], m[3], strings.ToLower(m[4])
		if atPrefix == "" && minutePart == "" && period == "" {
			continue
		}
		hours := atoi(hourPart)
		if hours > 23 {
			continue
		}
		minutes := 0
		if minutePart != "" {
			minutes = atoi(minutePart[1:])
			if minutes > 59 {
				continue
			}
		}
		if period == "pm" && hours < 12 {
			hours += 12
		}
		if period == "am" && hours == 12 {
			hours = 0
		}
		return twoDigits(hours) + ":" + twoDigits(minutes), m[0], true
	}
	return "", "", false
}

func inferCategory(lower string) domain.Category {
	for _, keyword := range workKeywords {
		if strings.Contains(lower, keyword) {
			return domain.CategoryWork
		}
	}
	for _, keyword := range lifeKeywords {
		if strings.Contains(lower, keyword) {
			return domain.CategoryLife
		}
	}
	return ""
}

func replaceFirst(re *regexp.Regexp, text string) string {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + text[loc[1]:]
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
