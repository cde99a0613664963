package queue

import (
	"fmt"
	"time"
)

// Schedule computes the run times of a periodic task
type Schedule interface {
	// Next returns the first run strictly after from
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule fires every fixed duration
type intervalSchedule time.Duration

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(time.Duration(s))
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", time.Duration(s))
}

func (s intervalSchedule) validate() error {
	if s <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidSchedule, time.Duration(s))
	}
	return nil
}

type period int

const (
	periodHour period = iota
	periodDay
	periodWeek
)

// clockSchedule fires at a wall-clock position inside a repeating hour, day or week
type clockSchedule struct {
	period  period
	weekday time.Weekday
	hour    int
	minute  int
}

func (s clockSchedule) Next(from time.Time) time.Time {
	var next time.Time
	switch s.period {
	case periodHour:
		next = time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.minute, 0, 0, from.Location())
	case periodDay:
		next = time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	case periodWeek:
		shift := (int(s.weekday) - int(from.Weekday()) + 7) % 7
		day := from.AddDate(0, 0, shift)
		next = time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, from.Location())
	}

	for !next.After(from) {
		next = s.advance(next)
	}
	return next
}

func (s clockSchedule) advance(t time.Time) time.Time {
	switch s.period {
	case periodHour:
		return t.Add(time.Hour)
	case periodDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.AddDate(0, 0, 7)
	}
}

func (s clockSchedule) String() string {
	switch s.period {
	case periodHour:
		return fmt.Sprintf("hourly at :%02d", s.minute)
	case periodDay:
		return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
	default:
		return fmt.Sprintf("weekly on %s at %02d:%02d", s.weekday, s.hour, s.minute)
	}
}

func (s clockSchedule) validate() error {
	if s.minute < 0 || s.minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidSchedule, s.minute)
	}
	if s.hour < 0 || s.hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidSchedule, s.hour)
	}
	if s.weekday < time.Sunday || s.weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, s.weekday)
	}
	return nil
}

// validateSchedule checks the built-in schedules; custom implementations are trusted
func validateSchedule(s Schedule) error {
	if s == nil {
		return ErrNoScheduleSpecified
	}
	if v, ok := s.(interface{ validate() error }); ok {
		return v.validate()
	}
	return nil
}

// EveryInterval runs a task every d
func EveryInterval(d time.Duration) Schedule {
	return intervalSchedule(d)
}

// EveryMinutes runs a task every n minutes
func EveryMinutes(n int) Schedule {
	return intervalSchedule(time.Duration(n) * time.Minute)
}

// EveryHours runs a task every n hours
func EveryHours(n int) Schedule {
	return intervalSchedule(time.Duration(n) * time.Hour)
}

// HourlyAt runs a task every hour at the given minute
func HourlyAt(minute int) Schedule {
	return clockSchedule{period: periodHour, minute: minute}
}

// DailyAt runs a task every day at hour:minute in the location of the reference time
func DailyAt(hour, minute int) Schedule {
	return clockSchedule{period: periodDay, hour: hour, minute: minute}
}

// WeeklyOn runs a task every week on weekday at hour:minute
func WeeklyOn(weekday time.Weekday, hour, minute int) Schedule {
	return clockSchedule{period: periodWeek, weekday: weekday, hour: hour, minute: minute}
}
