package validation

import (
	"reflect"
	"testing"
	"time"
)

type petInput struct {
	Name      string     `json:"name" validate:"required,min=2,max=50"`
	Specie    string     `json:"specie" validate:"required,oneof=perro gato"`
	BirthDate *time.Time `json:"birthDate" validate:"omitempty,notfuture"`
	Image     string     `json:"image" validate:"imageref"`
	Fee       float64    `json:"adoptionFee" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	if d := Struct(petInput{Name: "Firulais", Specie: "perro", BirthDate: &past, Image: "/uploads/x.png"}); d != nil {
		t.Fatalf("valid input rejected: %v", d)
	}

	d := Struct(petInput{Name: "F", Specie: "pez", BirthDate: &future, Image: "ftp://x", Fee: -1})
	for _, field := range []string{"name", "specie", "birthDate", "image", "adoptionFee"} {
		if _, ok := d[field]; !ok {
			t.Errorf("missing detail for %s in %v", field, d)
		}
	}
	if d["name"] != "must be at least 2 characters long" {
		t.Errorf("name detail = %q", d["name"])
	}
	if d["adoptionFee"] != "must be greater than or equal to 0" {
		t.Errorf("fee detail = %q", d["adoptionFee"])
	}
}

func TestUnknownFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty body", "", nil},
		{"all allowed", `{"notes":"x","status":"approved"}`, nil},
		{"unknown sorted", `{"owner":"1","notes":"x","adopted":true}`, []string{"adopted", "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnknownFields([]byte(tt.raw), "status", "notes", "adoptionFee")
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := UnknownFields([]byte(`[1,2]`)); err == nil {
		t.Fatal("non-object body must fail")
	}
}
