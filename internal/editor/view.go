package editor

import (
	"slices"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
)

// ExcerptLength is the rune length of list excerpts.
const ExcerptLength = 60

// Group is a run of memos created on the same calendar day.
type Group struct {
	Label string
	Items []Item
}

// Item is one memo row in the list view.
type Item struct {
	ID       string
	Title    string
	Excerpt  string
	Time     string // HH:MM of the last update
	Active   bool
	Selected bool
	Unsaved  bool
}

type dayLabels struct {
	today, yesterday, layout string
}

var labels = map[monday.Locale]dayLabels{
	monday.LocaleEnUS: {"Today", "Yesterday", "January 2"},
	monday.LocaleEnGB: {"Today", "Yesterday", "2 January"},
	monday.LocaleJaJP: {"今日", "昨日", "1月2日"},
	monday.LocaleDeDE: {"Heute", "Gestern", "2. January"},
	monday.LocaleFrFR: {"Aujourd'hui", "Hier", "2 January"},
}

func labelsFor(locale monday.Locale) dayLabels {
	if l, ok := labels[locale]; ok {
		return l
	}
	return labels[monday.LocaleEnUS]
}

// Filter keeps memos whose title or content contains query, ignoring case.
// An empty query keeps everything.
func Filter(memos []model.Memo, query string) []model.Memo {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(memos)
	}
	var out []model.Memo
	for _, m := range memos {
		if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m)
		}
	}
	return out
}

// SortByCreated orders memos newest first. Ties keep their input order.
func SortByCreated(memos []model.Memo) []model.Memo {
	out := slices.Clone(memos)
	slices.SortStableFunc(out, func(a, b model.Memo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// GroupByDay buckets memos by the calendar day of CreatedAt in now's
// location. Groups appear in the order their first memo is met.
func GroupByDay(memos []model.Memo, now time.Time, locale monday.Locale) []Group {
	l := labelsFor(locale)
	loc := now.Location()
	today := dayOf(now)
	yesterday := dayOf(now.AddDate(0, 0, -1))

	var groups []Group
	at := make(map[string]int)
	for _, m := range memos {
		created := m.CreatedAt.In(loc)
		var label string
		switch dayOf(created) {
		case today:
			label = l.today
		case yesterday:
			label = l.yesterday
		default:
			label = monday.Format(created, l.layout, locale)
		}
		i, ok := at[label]
		if !ok {
			i = len(groups)
			at[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Items = append(groups[i].Items, Item{
			ID:      m.ID,
			Title:   m.Title,
			Excerpt: markdown.Excerpt(m.Content, ExcerptLength),
			Time:    m.UpdatedAt.In(loc).Format("15:04"),
		})
	}
	return groups
}

type day struct {
	y int
	m time.Month
	d int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}
