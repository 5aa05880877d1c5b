package models

import "time"

// IdempotencyKey tracks processed initiation requests to prevent
// duplicate transactions when a client retries a POST.
type IdempotencyKey struct {
	CreatedAt      time.Time `db:"created_at"`
	Key            string    `db:"key"`
	RequestPath    string    `db:"request_path"`
	ResponseBody   string    `db:"response_body"`
	ResponseStatus int       `db:"response_status"`
}
