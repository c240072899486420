package model

import "time"

type Project struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Budget      Budget    `json:"budget"`
	Status      string    `json:"status"`
	StartDate   Date      `json:"startDate"`
	EndDate     Date      `json:"endDate"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInput is the writable subset of a project accepted by create and
// update calls. Code is ignored on update.
type ProjectInput struct {
	Code        string `json:"code"`
	Acronym     string `json:"acronym"`
	TypeTag     string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Budget      Budget `json:"budget"`
	Status      string `json:"status"`
	StartDate   Date   `json:"startDate"`
	EndDate     Date   `json:"endDate"`
}
