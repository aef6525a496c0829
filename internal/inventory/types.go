package inventory

import "time"

// BatchStatus is the inventory lifecycle state of a batch.
type BatchStatus string

const (
	StatusActive     BatchStatus = "active"
	StatusWrittenOff BatchStatus = "written_off"
	StatusConsumed   BatchStatus = "consumed"
)

// Terminal reports whether the batch has left active inventory and no
// longer warrants alerts.
func (s BatchStatus) Terminal() bool {
	return s == StatusWrittenOff || s == StatusConsumed
}

// Batch is a tracked quantity of a product with an expiry date.
// Department carries the department name when the row was joined.
type Batch struct {
	ID           int64       `json:"id"`
	HotelID      int64       `json:"hotel_id"`
	DepartmentID *int64      `json:"department_id,omitempty"`
	Department   string      `json:"department,omitempty"`
	ProductName  string      `json:"product_name"`
	Quantity     float64     `json:"quantity"`
	Unit         string      `json:"unit"`
	ExpiryDate   time.Time   `json:"expiry_date"`
	Status       BatchStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
