package models

import "time"

// Society represents one managed residential society.
type Society struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Pincode   string    `db:"pincode" json:"pincode"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Block is a named building/wing within a society.
type Block struct {
	ID        string    `db:"id" json:"id"`
	SocietyID string    `db:"society_id" json:"society_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BlockSummary pairs a block with its unit count for dashboard views.
type BlockSummary struct {
	Block
	UnitCount int `json:"unit_count"`
}

// Unit is a single dwelling within a block. Number is the display label
// (for example "A-101") and is matched case-sensitively on walk-in lookup.
type Unit struct {
	ID        string    `db:"id" json:"id"`
	SocietyID string    `db:"society_id" json:"society_id"`
	BlockID   string    `db:"block_id" json:"block_id"`
	Number    string    `db:"number" json:"number"`
	Floor     *int      `db:"floor" json:"floor,omitempty"`
	Occupied  bool      `db:"occupied" json:"occupied"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
