package calendar

// Week is a Monday-anchored planning week.
type Week struct {
	Start Date
}

func WeekOf(d Date) Week {
	return Week{Start: MondayOf(d)}
}

// End returns the Monday after the week, exclusive.
func (w Week) End() Date {
	return w.Start.AddDays(7)
}

func (w Week) Contains(d Date) bool {
	return !d.Before(w.Start) && d.Before(w.End())
}

// BusinessDays returns Monday through Friday in order.
func (w Week) BusinessDays() []Date {
	days := make([]Date, 0, 5)
	for i := 0; i < 5; i++ {
		days = append(days, w.Start.AddDays(i))
	}
	return days
}
