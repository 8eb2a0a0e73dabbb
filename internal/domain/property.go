package domain

const (
	MaxPropertyNameLen    = 200
	MaxPropertyAddressLen = 500
	MaxPropertyCityLen    = 100
)

// Property maps the properties table. Version is the optimistic
// concurrency token; every successful update increments it.
type Property struct {
	ID      int64  `db:"property_id"` // BIGSERIAL, PRIMARY KEY
	Name    string `db:"name"`        // VARCHAR(200), NOT NULL
	Address string `db:"address"`     // VARCHAR(500), NOT NULL
	City    string `db:"city"`        // VARCHAR(100), NOT NULL
	OwnerID int64  `db:"owner_id"`    // FK users, ON DELETE RESTRICT
	Version int64  `db:"version"`     // NOT NULL DEFAULT 1
}
