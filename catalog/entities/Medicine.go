package entities

// MedicineRecord is one over-the-counter or prescription product suggested for a condition.
// Price is a free-text range as printed by local pharmacies.
type MedicineRecord struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Brand   string `json:"brand" yaml:"brand" validate:"required"`
	Company string `json:"company" yaml:"company" validate:"required"`
	Price   string `json:"price" yaml:"price" validate:"required"`
}

// Condition groups the medicines listed under one catalog key.
type Condition struct {
	Key       string           `json:"key" yaml:"key" validate:"required"`
	Medicines []MedicineRecord `json:"medicines" yaml:"medicines" validate:"required,min=1,dive"`
}
