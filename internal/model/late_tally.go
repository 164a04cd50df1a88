package model

import "time"

type LateTally struct {
	Name       string    `json:"name"`
	Count      int       `json:"count"`
	LastLateAt time.Time `json:"last_late_at"`
}
