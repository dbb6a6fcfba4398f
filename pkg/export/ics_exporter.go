package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// CalendarEvent is one weekly recurring booking.
type CalendarEvent struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// ICSExporter renders bookings as an iCalendar feed with weekly recurrence.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

func NewICSExporter() *ICSExporter {
	return &ICSExporter{productID: "-//timetable-api//EN", now: time.Now}
}

func (e *ICSExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetName(name)
	}

	stamp := e.now().UTC()
	for _, evt := range events {
		if !evt.End.After(evt.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", evt.UID)
		}
		vevent := cal.AddEvent(evt.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(evt.Start)
		vevent.SetEndAt(evt.End)
		vevent.SetSummary(evt.Summary)
		if evt.Location != "" {
			vevent.SetLocation(evt.Location)
		}
		if evt.Description != "" {
			vevent.SetDescription(evt.Description)
		}
		vevent.SetProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;BYDAY="+weekdayCode(evt.Start.Weekday()))
	}

	return []byte(cal.Serialize()), nil
}

func weekdayCode(d time.Weekday) string {
	return strings.ToUpper(d.String()[:2])
}
