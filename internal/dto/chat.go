package dto

import "studybot/internal/models"

type ChatRequest struct {
	Message string                    `json:"message"`
	History []models.ConversationTurn `json:"history,omitempty"`
	Mode    string                    `json:"mode,omitempty" example:"short"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
