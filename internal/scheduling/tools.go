package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// Tools exposes the scheduling client to the language capability as
// callable functions. Every tool returns a JSON string; errors become a
// JSON error object so the model can recover in conversation instead of
// failing the reply.
type Tools struct {
	client *Client
	log    *slog.Logger
}

func NewTools(client *Client, log *slog.Logger) *Tools {
	if log == nil {
		log = slog.Default()
	}
	return &Tools{client: client, log: log.With("component", "scheduling_tools")}
}

func (t *Tools) Definitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "check_availability",
				Description: openai.String("Check available appointment slots for a given date"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"date": map[string]any{
							"type":        "string",
							"description": "Date to check in YYYY-MM-DD format",
						},
					},
					"required": []string{"date"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "create_appointment",
				Description: openai.String("Book a moving appointment once the customer has confirmed all details"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"customer_phone":      map[string]any{"type": "string", "description": "Customer phone number"},
						"customer_name":       map[string]any{"type": "string", "description": "Customer full name"},
						"appointment_date":    map[string]any{"type": "string", "description": "Date in YYYY-MM-DD format"},
						"appointment_time":    map[string]any{"type": "string", "description": "Time slot, e.g. 09:00"},
						"origin_address":      map[string]any{"type": "string", "description": "Address to move from"},
						"destination_address": map[string]any{"type": "string", "description": "Address to move to"},
						"notes":               map[string]any{"type": "string", "description": "Extra details about the move"},
						"service_type": map[string]any{
							"type":        "string",
							"description": "Type of moving service",
							"enum":        []string{"residential_move", "commercial_move", "packing_only", "storage"},
						},
						"estimated_hours": map[string]any{"type": "integer", "description": "Estimated duration of the move in hours"},
					},
					"required": []string{"customer_phone", "customer_name", "appointment_date", "appointment_time", "origin_address", "destination_address"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "get_customer_appointments",
				Description: openai.String("Look up a customer's existing appointments by phone number"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"customer_phone": map[string]any{"type": "string", "description": "Customer phone number"},
					},
					"required": []string{"customer_phone"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "modify_appointment",
				Description: openai.String("Modify an existing appointment's date, time or notes"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"appointment_id": map[string]any{"type": "string", "description": "Id of the appointment to modify"},
						"new_date":       map[string]any{"type": "string", "description": "New date in YYYY-MM-DD format"},
						"new_time":       map[string]any{"type": "string", "description": "New time slot, e.g. 09:00"},
						"new_notes":      map[string]any{"type": "string", "description": "Updated notes or special instructions"},
					},
					"required": []string{"appointment_id"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "get_service_quote",
				Description: openai.String("Estimate the cost of a move from its addresses and service type"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"origin_address":      map[string]any{"type": "string", "description": "Address to move from"},
						"destination_address": map[string]any{"type": "string", "description": "Address to move to"},
						"service_type": map[string]any{
							"type":        "string",
							"description": "Type of moving service",
							"enum":        []string{"residential_move", "commercial_move", "packing_only", "storage"},
						},
						"estimated_hours": map[string]any{"type": "integer", "description": "Estimated duration of the move in hours"},
						"special_items": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Items that need extra care, like a piano or artwork",
						},
					},
					"required": []string{"origin_address", "destination_address"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        "cancel_appointment",
				Description: openai.String("Cancel an existing appointment by its id"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"appointment_id":   map[string]any{"type": "string", "description": "Id of the appointment to cancel"},
						"appointment_date": map[string]any{"type": "string", "description": "Date of the appointment, if known"},
					},
					"required": []string{"appointment_id"},
				},
			},
		},
	}
}

func (t *Tools) Invoke(ctx context.Context, name, arguments string) (string, error) {
	t.log.Debug("tool invoked", "tool", name)

	switch name {
	case "check_availability":
		var args struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		avail, err := t.client.Availability(ctx, args.Date)
		if err != nil {
			return "", err
		}
		return marshal(avail)

	case "create_appointment":
		var req AppointmentRequest
		if err := json.Unmarshal([]byte(arguments), &req); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		appt, err := t.client.CreateAppointment(ctx, req)
		if err != nil {
			return "", err
		}
		return marshal(appt)

	case "get_customer_appointments":
		var args struct {
			CustomerPhone string `json:"customer_phone"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		appts, err := t.client.AppointmentsByPhone(ctx, args.CustomerPhone)
		if err != nil {
			return "", err
		}
		return marshal(appts)

	case "modify_appointment":
		var args struct {
			AppointmentID string `json:"appointment_id"`
			NewDate       string `json:"new_date"`
			NewTime       string `json:"new_time"`
			NewNotes      string `json:"new_notes"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		appt, err := t.client.ModifyAppointment(ctx, args.AppointmentID, AppointmentUpdate{
			AppointmentDate: args.NewDate,
			AppointmentTime: args.NewTime,
			Notes:           args.NewNotes,
		})
		if err != nil {
			return "", err
		}
		return marshal(appt)

	case "get_service_quote":
		var req QuoteRequest
		if err := json.Unmarshal([]byte(arguments), &req); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		quote, err := t.client.ServiceQuote(ctx, req)
		if err != nil {
			return "", err
		}
		return marshal(quote)

	case "cancel_appointment":
		var args struct {
			AppointmentID   string `json:"appointment_id"`
			AppointmentDate string `json:"appointment_date"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
		if err := t.client.CancelAppointment(ctx, args.AppointmentID, args.AppointmentDate); err != nil {
			return "", err
		}
		return `{"cancelled": true}`, nil

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(raw), nil
}
