package model

// Obligation is a duty extracted from a clause typed "obligation"
type Obligation struct {
	Party     string `json:"party"`     // Who is bound
	Action    string `json:"action"`    // What must be done
	Condition string `json:"condition"` // When the duty applies ("Unknown" if unconditional)
	DueDate   string `json:"due_date"`  // Deadline phrase or detected date
	ClauseID  int    `json:"clause_id"` // Source clause
}

// Right is an entitlement extracted from a clause typed "right"
type Right struct {
	Party     string `json:"party"`
	Action    string `json:"action"`
	Condition string `json:"condition"`
	DueDate   string `json:"due_date"`
	ClauseID  int    `json:"clause_id"`
}
