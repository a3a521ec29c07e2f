package entity

import "time"

type Species string

const (
	SpeciesDog    Species = "perro"
	SpeciesCat    Species = "gato"
	SpeciesRabbit Species = "conejo"
	SpeciesBird   Species = "ave"
	SpeciesRodent Species = "roedor"
	SpeciesOther  Species = "otro"
)

// AllSpecies lists the accepted species in display order.
var AllSpecies = []Species{SpeciesDog, SpeciesCat, SpeciesRabbit, SpeciesBird, SpeciesRodent, SpeciesOther}

func (s Species) Valid() bool {
	for _, v := range AllSpecies {
		if s == v {
			return true
		}
	}
	return false
}

type PetStatus string

const (
	PetAvailable PetStatus = "available"
	PetAdopted   PetStatus = "adopted"
	PetReserved  PetStatus = "reserved"
	PetPending   PetStatus = "pending"
)

func (s PetStatus) Valid() bool {
	switch s {
	case PetAvailable, PetAdopted, PetReserved, PetPending:
		return true
	}
	return false
}

type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Pet is available for adoption until an approval flips Adopted and Owner together.
type Pet struct {
	ID          string
	Name        string
	Specie      Species
	Breed       string
	BirthDate   *time.Time
	Adopted     bool
	Status      PetStatus
	Owner       string
	Image       string
	Description string
	Location    Location
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgeYears returns the age in whole years at now, or -1 when the birth date is unknown.
func (p *Pet) AgeYears(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	return int(now.Sub(*p.BirthDate).Hours() / 24 / 365.25)
}
