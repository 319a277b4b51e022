package models

// Requests for forecasting HTTP endpoints and queue/Kafka payloads.

type ForecastRequest struct {
	Category    string `json:"category" validate:"required"`
	Branch      string `json:"branch"`
	Start       string `json:"start" default:"2022-01-01" validate:"datetime=2006-01-02"`
	End         string `json:"end" default:"2025-07-31" validate:"datetime=2006-01-02"`
	Cutoff      string `json:"cutoff" default:"2025-01-01" validate:"datetime=2006-01-02"`
	HorizonDays int    `json:"horizon_days" default:"212" validate:"gte=1,lte=365"`
	Full        bool   `json:"full"`
}

// BatchRequest triggers a batch run. Empty Categories means "discover from the source".
type BatchRequest struct {
	Dataset     string   `json:"dataset"`
	Categories  []string `json:"categories" validate:"omitempty,dive,required"`
	Branches    []string `json:"branches" validate:"omitempty,dive,required"`
	Start       string   `json:"start" default:"2022-01-01" validate:"datetime=2006-01-02"`
	End         string   `json:"end" default:"2025-07-31" validate:"datetime=2006-01-02"`
	Cutoff      string   `json:"cutoff" default:"2025-01-01" validate:"datetime=2006-01-02"`
	HorizonDays int      `json:"horizon_days" default:"212" validate:"gte=1,lte=365"`
}

type CategoriesRequest struct {
	Branch string `query:"branch" json:"branch"`
	Start  string `query:"start" json:"start" default:"2022-01-01" validate:"datetime=2006-01-02"`
	End    string `query:"end" json:"end" default:"2025-07-31" validate:"datetime=2006-01-02"`
}

type HolidayRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Label string `json:"label" validate:"required"`
}

type PeriodRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=Ramadan Ujian"`
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}
