package model

// Service is one entry of the static service catalog.
type Service struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
