package core

// MonthSummary is the derived total for one month of entries. It is
// recomputed from entries on every load and never persisted.
type MonthSummary struct {
	Month         Month
	TotalPrice    Yen
	TotalCalories int64
	EntryCount    int
}

// Summarize sums price and calories over the entries that fall inside
// the month. Entries outside the range are ignored so callers can pass
// query results as-is.
func Summarize(m Month, entries []Entry) MonthSummary {
	s := MonthSummary{Month: m}
	for _, e := range entries {
		if !m.Contains(e.Day) {
			continue
		}
		s.TotalPrice += e.Price
		s.TotalCalories += e.Calories
		s.EntryCount++
	}
	return s
}

// ExceedsPrice reports whether the month's spending is over the goal.
// An absent goal is no threshold, never zero.
func (s MonthSummary) ExceedsPrice(g Goal) bool {
	return g.PriceGoal != nil && s.TotalPrice > *g.PriceGoal
}

// ExceedsCalories reports whether the month's calories are over the goal.
func (s MonthSummary) ExceedsCalories(g Goal) bool {
	return g.CalorieGoal != nil && s.TotalCalories > *g.CalorieGoal
}

// IconCounts maps each icon to how many of the user's entries carry it,
// across all time. It backs the history radar chart.
type IconCounts map[Icon]int64

// Of returns the count for an icon, zero when the icon never appears.
func (c IconCounts) Of(ic Icon) int64 {
	return c[ic]
}

// Total returns the number of counted entries.
func (c IconCounts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// CountIcons tallies icons over the given entries, skipping entries
// without one.
func CountIcons(entries []Entry) IconCounts {
	counts := make(IconCounts)
	for _, e := range entries {
		if e.Icon == "" {
			continue
		}
		counts[e.Icon]++
	}
	return counts
}
