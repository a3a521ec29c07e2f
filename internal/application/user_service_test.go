package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (m *memFiles) Put(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[objectPath] = b
	return "https://storage.test/" + objectPath, nil
}

func (m *memFiles) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectPath)
	return nil
}

func upload(name string) Upload {
	return Upload{Name: name, ContentType: "application/pdf", Size: 4, Body: bytes.NewBufferString("%PDF")}
}

func TestUserAccessOrder(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store.Users, f.store.Adoptions, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, f.maria, "bad-id")
	wantKind(t, err, apperror.KindInvalidID)
	_, err = svc.Get(ctx, f.maria, helpers.NewID())
	wantKind(t, err, apperror.KindNotFound)
	_, err = svc.Get(ctx, f.maria, f.juan.ID)
	wantKind(t, err, apperror.KindForbidden)
	if _, err := svc.Get(ctx, f.admin, f.juan.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(ctx, f.juan, "", pageOne); err == nil {
		t.Fatal("non-admin listed users")
	}
}

func TestUserUpdate(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store.Users, f.store.Adoptions, nil, nil)
	ctx := context.Background()

	admin := entity.RoleAdmin
	_, err := svc.Update(ctx, f.juan, f.juan.ID, UpdateUserInput{Role: &admin})
	wantKind(t, err, apperror.KindForbidden)

	taken := "MARIA@test.com"
	_, err = svc.Update(ctx, f.juan, f.juan.ID, UpdateUserInput{Email: &taken})
	wantKind(t, err, apperror.KindConflict)

	name := "  Juanito "
	u, err := svc.Update(ctx, f.juan, f.juan.ID, UpdateUserInput{FirstName: &name})
	if err != nil || u.FirstName != "Juanito" {
		t.Fatalf("%v %+v", err, u)
	}
	premium := entity.RolePremium
	if u, err := svc.Update(ctx, f.admin, f.juan.ID, UpdateUserInput{Role: &premium}); err != nil || u.Role != premium {
		t.Fatalf("admin role change: %v", err)
	}
}

func TestUserDeleteRules(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store.Users, f.store.Adoptions, nil, nil)
	ctx := context.Background()

	wantKind(t, svc.Delete(ctx, f.juan, f.admin.ID), apperror.KindForbidden)

	a := f.request(t)
	wantKind(t, svc.Delete(ctx, f.admin, f.juan.ID), apperror.KindValidation)
	if _, err := f.store.Users.FindByID(ctx, f.juan.ID); err != nil {
		t.Fatalf("pending requester was deleted: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.admin, a.ID, nil); err != nil {
		t.Fatal(err)
	}
	wantKind(t, svc.Delete(ctx, f.admin, f.juan.ID), apperror.KindValidation)
	if err := svc.Delete(ctx, f.maria, f.maria.ID); err != nil {
		t.Fatalf("self delete: %v", err)
	}
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	files := &memFiles{}
	svc := NewUserService(f.store.Users, f.store.Adoptions, files, nil)
	ctx := context.Background()

	docs, err := svc.AddDocuments(ctx, f.juan, f.juan.ID, []Upload{upload("../../etc/<dni>.PDF")})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Name != "dni.PDF" || !strings.HasSuffix(docs[0].Reference, ".pdf") {
		t.Fatalf("document = %+v", docs[0])
	}

	many := make([]Upload, entity.MaxDocuments)
	for i := range many {
		many[i] = upload("doc.pdf")
	}
	_, err = svc.AddDocuments(ctx, f.juan, f.juan.ID, many)
	wantKind(t, err, apperror.KindValidation)

	list, _ := svc.Documents(ctx, f.juan, f.juan.ID)
	if len(list) != 1 {
		t.Fatalf("documents = %d", len(list))
	}
	if err := svc.RemoveDocument(ctx, f.juan, f.juan.ID, list[0].ID); err != nil {
		t.Fatal(err)
	}
	if len(files.objects) != 0 {
		t.Fatalf("stored objects left: %v", files.objects)
	}
	wantKind(t, svc.RemoveDocument(ctx, f.juan, f.juan.ID, list[0].ID), apperror.KindNotFound)

	_, err = NewUserService(f.store.Users, f.store.Adoptions, nil, nil).AddDocuments(ctx, f.juan, f.juan.ID, []Upload{upload("a.pdf")})
	wantKind(t, err, apperror.KindValidation)
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"informe.pdf":             "informe.pdf",
		`C:\fotos\perro.jpg`:      "perro.jpg",
		"<script>.txt":            "script.txt",
		"":                        "document",
		strings.Repeat("a", 150): strings.Repeat("a", 100),
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
