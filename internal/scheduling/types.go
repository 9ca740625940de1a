package scheduling

import "time"

// Appointment mirrors the scheduling service's record for a booked move.
type Appointment struct {
	ID                 string `json:"id"`
	CustomerPhone      string `json:"customer_phone"`
	CustomerName       string `json:"customer_name"`
	AppointmentDate    string `json:"appointment_date"`
	AppointmentTime    string `json:"appointment_time"`
	OriginAddress      string `json:"origin_address"`
	DestinationAddress string `json:"destination_address"`
	Notes              string `json:"notes,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// AppointmentRequest is the booking payload sent to the scheduling service.
type AppointmentRequest struct {
	CustomerPhone      string `json:"customer_phone"`
	CustomerName       string `json:"customer_name"`
	AppointmentDate    string `json:"appointment_date"`
	AppointmentTime    string `json:"appointment_time"`
	OriginAddress      string `json:"origin_address"`
	DestinationAddress string `json:"destination_address"`
	Notes              string `json:"notes,omitempty"`
	ServiceType        string `json:"service_type,omitempty"`
	EstimatedHours     int    `json:"estimated_hours,omitempty"`
}

// AppointmentUpdate carries the fields a reschedule may change. Zero fields
// are left untouched by the scheduling service.
type AppointmentUpdate struct {
	AppointmentDate string `json:"appointment_date,omitempty"`
	AppointmentTime string `json:"appointment_time,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// QuoteRequest asks the scheduling service for a service estimate.
type QuoteRequest struct {
	OriginAddress      string   `json:"origin_address"`
	DestinationAddress string   `json:"destination_address"`
	ServiceType        string   `json:"service_type,omitempty"`
	EstimatedHours     int      `json:"estimated_hours,omitempty"`
	SpecialItems       []string `json:"special_items,omitempty"`
}

// Quote is the scheduling service's cost estimate for a move.
type Quote struct {
	BaseRate        float64            `json:"base_rate"`
	EstimatedHours  int                `json:"estimated_hours"`
	EstimatedTotal  float64            `json:"estimated_total"`
	ServiceType     string             `json:"service_type"`
	SpecialItemsFee float64            `json:"special_items_fee"`
	TravelFee       float64            `json:"travel_fee"`
	Breakdown       map[string]float64 `json:"breakdown"`
}

// Availability lists the open slots for one date.
type Availability struct {
	Date  string   `json:"date"`
	Slots []string `json:"available_slots"`
}

type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	AvailabilityTTL time.Duration
}
