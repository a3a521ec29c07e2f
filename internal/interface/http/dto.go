package handlers

import (
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

type adoptionDTO struct {
	ID           string                `json:"id"`
	Owner        string                `json:"owner"`
	Pet          string                `json:"pet"`
	Status       entity.AdoptionStatus `json:"status"`
	Notes        string                `json:"notes"`
	AdoptionFee  *float64              `json:"adoptionFee,omitempty"`
	AdoptionDate time.Time             `json:"adoptionDate"`
	ApprovedAt   *time.Time            `json:"approvedAt,omitempty"`
	RejectedAt   *time.Time            `json:"rejectedAt,omitempty"`
	CancelledAt  *time.Time            `json:"cancelledAt,omitempty"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func toAdoptionDTO(a *entity.Adoption) adoptionDTO {
	return adoptionDTO{
		ID:           a.ID,
		Owner:        a.Owner,
		Pet:          a.Pet,
		Status:       a.Status,
		Notes:        a.Notes,
		AdoptionFee:  a.AdoptionFee,
		AdoptionDate: a.AdoptionDate,
		ApprovedAt:   a.ApprovedAt,
		RejectedAt:   a.RejectedAt,
		CancelledAt:  a.CancelledAt,
		CompletedAt:  a.CompletedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type petDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Specie      entity.Species   `json:"specie"`
	Breed       string           `json:"breed,omitempty"`
	BirthDate   *time.Time       `json:"birthDate,omitempty"`
	Age         *int             `json:"age,omitempty"`
	Adopted     bool             `json:"adopted"`
	Status      entity.PetStatus `json:"status"`
	Owner       string           `json:"owner,omitempty"`
	Image       string           `json:"image,omitempty"`
	Description string           `json:"description,omitempty"`
	Location    entity.Location  `json:"location"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func toPetDTO(p *entity.Pet) petDTO {
	d := petDTO{
		ID:          p.ID,
		Name:        p.Name,
		Specie:      p.Specie,
		Breed:       p.Breed,
		BirthDate:   p.BirthDate,
		Adopted:     p.Adopted,
		Status:      p.Status,
		Owner:       p.Owner,
		Image:       p.Image,
		Description: p.Description,
		Location:    p.Location,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if age := p.AgeYears(time.Now()); age >= 0 {
		d.Age = &age
	}
	return d
}

// userDTO is the public profile; the credential hash and login counters
// never leave the store.
type userDTO struct {
	ID             string      `json:"id"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Email          string      `json:"email"`
	Role           entity.Role `json:"role"`
	Pets           []string    `json:"pets"`
	PetsCount      int         `json:"pets_count"`
	DocumentsCount int         `json:"documents_count"`
	LastConnection *time.Time  `json:"last_connection,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func toUserDTO(u *entity.User) userDTO {
	pets := u.Pets
	if pets == nil {
		pets = []string{}
	}
	return userDTO{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Role:           u.Role,
		Pets:           pets,
		PetsCount:      len(pets),
		DocumentsCount: len(u.Documents),
		LastConnection: u.LastConnection,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

type documentDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Reference  string    `json:"reference"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toDocumentDTOs(docs []entity.Document) []documentDTO {
	out := make([]documentDTO, len(docs))
	for i, d := range docs {
		out[i] = documentDTO{ID: d.ID, Name: d.Name, Reference: d.Reference, FileType: d.FileType, FileSize: d.FileSize, UploadedAt: d.UploadedAt}
	}
	return out
}

func mapAll[T, D any](items []T, fn func(T) D) []D {
	out := make([]D, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}

func pagination[T any](p repo.Paginated[T]) response.Pagination {
	return response.Pagination{
		Total:       p.Total,
		Page:        p.Page.Page,
		Limit:       p.Page.Limit,
		Pages:       p.Pages(),
		HasNextPage: p.HasNextPage(),
		HasPrevPage: p.HasPrevPage(),
	}
}
