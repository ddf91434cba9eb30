package logic

import (
	"context"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

// AppointmentService answers the scheduling tools. Availability is canned
// until the practice management system integration lands.
type AppointmentService struct{}

func NewAppointmentService() *AppointmentService {
	return &AppointmentService{}
}

func (s *AppointmentService) Availability(ctx context.Context, date string) ([]string, error) {
	logger.Log.Infof("Looking up availability on %s", date)
	return []string{"1pm", "2pm", "3pm"}, nil
}

func (s *AppointmentService) Confirm(ctx context.Context, date, timeOfDay string) (string, error) {
	logger.Log.Infof("Confirming appointment on %s at %s", date, timeOfDay)
	return "reservation confirmed", nil
}
