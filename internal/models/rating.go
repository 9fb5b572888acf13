package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating описывает оценку подмастерья участником после завершения работы.
// Уникальна в пределах пары (JobRequestID, RaterID).
type Rating struct {
	ID           uuid.UUID `db:"id" json:"id"`
	JobRequestID uuid.UUID `db:"job_request_id" json:"job_request_id"`
	RaterID      uuid.UUID `db:"rater_id" json:"rater_id"`
	RateeID      uuid.UUID `db:"ratee_id" json:"ratee_id"`
	Rating       int       `db:"rating" json:"rating"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RatingDetails содержит сводку оценок подмастерья.
type RatingDetails struct {
	ApprenticeID  uuid.UUID   `json:"apprentice_id"`
	AverageRating float64     `json:"average_rating"`
	TotalRatings  int         `json:"total_ratings"`
	Breakdown     map[int]int `json:"breakdown"`
	Recent        []Rating    `json:"recent"`
}
