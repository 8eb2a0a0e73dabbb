package domain

const MaxApartmentNumberLen = 50

// Apartment maps the apartments table. Number is unique within its
// property only.
type Apartment struct {
	ID         int64           `db:"apartment_id"` // BIGSERIAL, PRIMARY KEY
	Number     string          `db:"number"`       // VARCHAR(50), NOT NULL, UNIQUE(property_id, number)
	Rent       Money           `db:"rent"`         // NUMERIC(12,2), CHECK (rent >= 0)
	Status     ApartmentStatus `db:"status"`       // VARCHAR(20), NOT NULL
	PropertyID int64           `db:"property_id"`  // FK properties, ON DELETE CASCADE
	Version    int64           `db:"version"`      // NOT NULL DEFAULT 1

	// Property name and city, filled by listing queries that join properties.
	PropertyName string `db:"-"`
	PropertyCity string `db:"-"`
}
