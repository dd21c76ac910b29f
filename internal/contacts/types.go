package contacts

import "time"

type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CPF       string    `json:"cpf"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

type UpdateRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	CPF   *string `json:"cpf"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

// DeleteResult reports what a cascade delete removed and any document files
// that could not be cleaned up.
type DeleteResult struct {
	Appointments int      `json:"appointments"`
	Documents    int      `json:"documents"`
	Warnings     []string `json:"warnings,omitempty"`
}
