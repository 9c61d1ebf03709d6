package model

// Статусы шага — единицы исполнения тура.
const (
	StepStatusNotBooked = "not_booked"            // услуга не заказана
	StepStatusAwaiting  = "awaiting_confirmation" // ждем ответа поставщика
	StepStatusBooked    = "booked"                // поставщик подтвердил
	StepStatusPaid      = "paid"                  // оплачено (только оператор/админ)
)

// Виды услуг шага.
const (
	StepKindHotel    = "hotel"
	StepKindTransfer = "transfer"
	StepKindActivity = "activity"
	StepKindMeal     = "meal"
	StepKindOther    = "other"
)

// Step представляет шаг дня тура: услугу, которую нужно заказать у поставщика.
type Step struct {
	ID          int    `db:"id" json:"id"`
	DayID       int    `db:"day_id" json:"day_id"`
	Kind        string `db:"kind" json:"kind"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	// SupplierName — денормализованный снимок имени поставщика для старых
	// экранов с единственным поставщиком.
	SupplierName string `db:"supplier_name" json:"supplier_name"`
}

// ValidStepStatus сообщает, является ли строка допустимым статусом шага.
func ValidStepStatus(s string) bool {
	switch s {
	case StepStatusNotBooked, StepStatusAwaiting, StepStatusBooked, StepStatusPaid:
		return true
	}
	return false
}

// StepContext объединяет шаг с его принадлежностью (день, тур, компания) —
// результат выборки с join для проверок доступа и уведомлений.
type StepContext struct {
	Step
	TourID     int    `db:"tour_id" json:"tour_id"`
	TenantID   int    `db:"tenant_id" json:"tenant_id"`
	TourName   string `db:"tour_name" json:"tour_name"`
	TenantName string `db:"tenant_name" json:"tenant_name"`
	DayDate    string `db:"day_date_text" json:"day_date"`
}
