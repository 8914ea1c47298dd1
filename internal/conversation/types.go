package conversation

import "time"

// Turn is one question/answer exchange within a conversation.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Sources        []string  `json:"sources"`
	Language       string    `json:"language"`
	Cached         bool      `json:"cached"`
	Rating         *int      `json:"rating,omitempty"` // -1 or +1 once rated
	Feedback       string    `json:"feedback,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation is a full exchange history, turns oldest-first.
type Conversation struct {
	ID        string    `json:"id"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// Summary is a conversation listing row.
type Summary struct {
	ID            string    `json:"id"`
	Language      string    `json:"language"`
	Turns         int       `json:"turns"`
	FirstQuestion string    `json:"first_question"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RatingStats aggregates turn ratings for analytics.
type RatingStats struct {
	Rated int `json:"rated"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}
