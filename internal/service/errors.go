package service

import (
	"errors"

	"github.com/fieldops/planner/internal/calendar"
)

var (
	ErrInvalidClock          = calendar.ErrInvalidClock
	ErrInvalidDate           = calendar.ErrInvalidDate
	ErrInvalidSlot           = errors.New("planner: slot end must be after start")
	ErrInvalidDuration       = errors.New("planner: installation duration must be positive")
	ErrDuplicateScheduleDate = errors.New("planner: duplicate schedule date")
	ErrFridayStart           = errors.New("planner: multi-day installation cannot start on a friday")
	ErrAppointmentNotFound   = errors.New("planner: appointment not found")
)
