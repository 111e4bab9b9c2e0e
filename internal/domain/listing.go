package domain

// ListingRecord is one candidate vehicle offer pulled from a search-results
// page. Price is normalized to thousands of JPY before the record is built;
// everything except price and year may fall back to a default.
type ListingRecord struct {
	Price          int    `json:"price"`
	Year           int    `json:"year"`
	Mileage        int    `json:"mileage"`
	EngineCapacity int    `json:"engine_capacity"`
	Transmission   string `json:"transmission"`
	Drive          string `json:"drive"`
	Grade          string `json:"grade"`
	Mark           string `json:"mark"`
	Model          string `json:"model"`
	Link           string `json:"link,omitempty"`
}

const (
	TransmissionManual    = "mt"
	TransmissionAutomatic = "at"

	DriveFourWheel = "4wd"
	DriveTwoWheel  = "2wd"

	GradeUnknown = "Unknown"
)

// Valid reports whether the record passes the emission gate: a positive
// normalized price and a plausible model year.
func (r ListingRecord) Valid() bool {
	return r.Price > 0 && r.Year >= 1980 && r.Year <= 2029
}
