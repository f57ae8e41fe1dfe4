package dto

// ProgressRequest records progress on a learning module
type ProgressRequest struct {
	Status string   `json:"status" validate:"required,oneof=not_started in_progress completed"`
	Score  *float64 `json:"score" validate:"omitempty,min=0,max=100"`
}
