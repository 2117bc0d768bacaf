package dto

import (
	"time"

	ecaapp "github.com/erp/eca/internal/application/eca"
)

// WebhookRequest is the envelope accepted by the webhook endpoint
type WebhookRequest struct {
	Action         string         `json:"action" example:"purchase"`
	OrganizationID string         `json:"organization_id" example:"6f1c2c57-4f0e-4a8e-9d55-0c1f6b1b7a10"`
	Attributes     map[string]any `json:"attributes"`
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health status values
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// ActionsResponse lists the webhook actions and their declared states
type ActionsResponse struct {
	Actions []ActionDescriptor `json:"actions"`
}

// ActionDescriptor describes one webhook action
type ActionDescriptor struct {
	Action          string   `json:"action"`
	TransactionType string   `json:"transaction_type"`
	InitialState    string   `json:"initial_state"`
	States          []string `json:"states"`
	Policy          string   `json:"failure_policy"`
}

// NewActionsResponse converts the processor action descriptions
func NewActionsResponse(infos []ecaapp.ActionInfo) ActionsResponse {
	out := ActionsResponse{Actions: make([]ActionDescriptor, 0, len(infos))}
	for _, info := range infos {
		states := make([]string, 0, len(info.States))
		for _, s := range info.States {
			states = append(states, string(s))
		}
		out.Actions = append(out.Actions, ActionDescriptor{
			Action:          info.Action,
			TransactionType: string(info.TransactionType),
			InitialState:    string(info.InitialState),
			States:          states,
			Policy:          string(info.Policy),
		})
	}
	return out
}
