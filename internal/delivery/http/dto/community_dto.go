package dto

// ChatMessageRequest posts a chat message to a room
type ChatMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
