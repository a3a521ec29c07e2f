package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// PetIndex keeps a searchable copy of the pet catalogue in Elasticsearch.
// The store stays the source of truth; search hits are ids only.
type PetIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewPetIndex(es *elasticsearch.Client, index string) *PetIndex {
	return &PetIndex{es: es, index: index}
}

type petDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Specie      string    `json:"specie"`
	Breed       string    `json:"breed,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Adopted     bool      `json:"adopted"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDocument(p *entity.Pet) petDocument {
	return petDocument{
		ID:          p.ID,
		Name:        p.Name,
		Specie:      string(p.Specie),
		Breed:       p.Breed,
		Description: p.Description,
		Status:      string(p.Status),
		Adopted:     p.Adopted,
		City:        p.Location.City,
		State:       p.Location.State,
		Country:     p.Location.Country,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

var petMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"name":        map[string]any{"type": "text"},
			"specie":      map[string]any{"type": "keyword"},
			"breed":       map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"status":      map[string]any{"type": "keyword"},
			"adopted":     map[string]any{"type": "boolean"},
			"city":        map[string]any{"type": "text"},
			"state":       map[string]any{"type": "text"},
			"country":     map[string]any{"type": "text"},
			"created_at":  map[string]any{"type": "date"},
			"updated_at":  map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (x *PetIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(c, x.es)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return responseErr(res, "check index")
	}

	b, err := json.Marshal(petMapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: bytes.NewReader(b)}.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == 400 {
		// created concurrently by another instance
		return nil
	}
	return responseErr(res, "create index")
}

func (x *PetIndex) IndexPet(ctx context.Context, p *entity.Pet) error {
	b, err := json.Marshal(toDocument(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	return responseErr(res, "index pet")
}

// DeletePet removes a pet document. A missing document is not an error.
func (x *PetIndex) DeletePet(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == 404 {
		return nil
	}
	return responseErr(res, "delete pet")
}

// SearchPets runs a multi_match over name, breed, description and location
// and returns the matching pet ids by relevance.
func (x *PetIndex) SearchPets(ctx context.Context, q string, size int) ([]string, error) {
	b, err := json.Marshal(searchQuery(q, size))
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == 404 {
		// index not created yet
		return []string{}, nil
	}
	if err := responseErr(res, "search pets"); err != nil {
		return nil, err
	}
	return decodeHits(res.Body)
}

func searchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^3", "breed^2", "specie", "description", "city", "state", "country"},
				"fuzziness": "AUTO",
			},
		},
		"size":    size,
		"_source": false,
	}
}

func decodeHits(r io.Reader) ([]string, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

func responseErr(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	return fmt.Errorf("%s: elasticsearch responded %s", op, res.Status())
}
