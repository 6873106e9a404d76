package http

import (
	"encoding/json"
	"net/http"

	"github.com/textcircle/backend/internal/chat/domain"
)

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, GenericErrorResponse{Error: message})
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}
}

func toGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:              g.ID,
		Name:            g.Name,
		DedicatedNumber: g.DedicatedNumber,
		MemberCount:     g.MemberCount,
		CreatedAt:       g.CreatedAt,
	}
}

func toMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		GroupID:    m.GroupID,
		SenderID:   m.SenderUserID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}
