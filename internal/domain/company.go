package domain

import "time"

type Company struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	LogoURL     *string   `db:"logo_url"`
	Country     string    `db:"country"`
	OwnerUserID *string   `db:"owner_user_id"` // nil for synchronized companies
	CreatedAt   time.Time `db:"created_at"`
}
