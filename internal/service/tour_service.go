package service

import (
	"fmt"
	"time"

	"tourops/internal/apperr"
	"tourops/internal/model"
)

// TourStore — доступ к турам и дням.
type TourStore interface {
	Create(tenantID int, name string) (int, error)
	GetByID(id int) (*model.Tour, error)
	AddDay(tourID int, date time.Time) (int, error)
	GetDay(id int) (*model.Day, error)
	ListDays(tourID int) ([]model.Day, error)
}

// StepCreator — создание и чтение шагов дня.
type StepCreator interface {
	Create(step *model.Step) (int, error)
	ListByDay(dayID int) ([]model.Step, error)
}

// DayView — день тура вместе с шагами.
type DayView struct {
	model.Day
	Steps []model.Step `json:"steps"`
}

// TourView — тур вместе с днями и шагами.
type TourView struct {
	model.Tour
	Days []DayView `json:"days"`
}

// TourService ведет дерево тур → день → шаг.
type TourService struct {
	tours  TourStore
	steps  StepCreator
	access *AccessService
}

// NewTourService создает новый сервис туров.
func NewTourService(tours TourStore, steps StepCreator, access *AccessService) *TourService {
	return &TourService{tours: tours, steps: steps, access: access}
}

// CreateTour создает тур в компании действующего лица.
func (s *TourService) CreateTour(p Principal, tenantID int, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: требуется название тура", apperr.ErrValidation)
	}
	if _, err := s.access.Authorize(p, tenantID); err != nil {
		return 0, err
	}
	return s.tours.Create(tenantID, name)
}

// getTourAuthorized возвращает тур после проверки доступа.
func (s *TourService) getTourAuthorized(p Principal, tourID int) (*model.Tour, error) {
	tour, err := s.tours.GetByID(tourID)
	if err != nil {
		return nil, maskNotFound(err)
	}
	if _, err := s.access.Authorize(p, tour.TenantID); err != nil {
		return nil, err
	}
	return tour, nil
}

// AddDay добавляет день в конец тура.
func (s *TourService) AddDay(p Principal, tourID int, date time.Time) (int, error) {
	if _, err := s.getTourAuthorized(p, tourID); err != nil {
		return 0, err
	}
	return s.tours.AddDay(tourID, date)
}

// AddStep добавляет шаг в день тура.
func (s *TourService) AddStep(p Principal, dayID int, kind, title, description string) (int, error) {
	if title == "" {
		return 0, fmt.Errorf("%w: требуется название шага", apperr.ErrValidation)
	}
	switch kind {
	case model.StepKindHotel, model.StepKindTransfer, model.StepKindActivity, model.StepKindMeal, model.StepKindOther:
	default:
		return 0, fmt.Errorf("%w: недопустимый вид услуги %q", apperr.ErrValidation, kind)
	}
	day, err := s.tours.GetDay(dayID)
	if err != nil {
		return 0, maskNotFound(err)
	}
	if _, err := s.getTourAuthorized(p, day.TourID); err != nil {
		return 0, err
	}
	return s.steps.Create(&model.Step{DayID: dayID, Kind: kind, Title: title, Description: description})
}

// GetTour возвращает тур с днями и шагами.
func (s *TourService) GetTour(p Principal, tourID int) (*TourView, error) {
	tour, err := s.getTourAuthorized(p, tourID)
	if err != nil {
		return nil, err
	}
	days, err := s.tours.ListDays(tourID)
	if err != nil {
		return nil, err
	}
	view := &TourView{Tour: *tour, Days: make([]DayView, 0, len(days))}
	for _, d := range days {
		steps, err := s.steps.ListByDay(d.ID)
		if err != nil {
			return nil, err
		}
		view.Days = append(view.Days, DayView{Day: d, Steps: steps})
	}
	return view, nil
}
