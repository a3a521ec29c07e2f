package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/policy"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/validation"
)

const maxDocumentName = 100

var errStorageNotConfigured = apperror.Validation("storage not configured", nil)

// UserService covers profile reads and writes plus user documents. It never
// touches User.pets.
type UserService struct {
	Users     repo.UserRepository
	Adoptions repo.AdoptionRepository
	Files     ObjectStore
	Logger    logrus.FieldLogger

	now func() time.Time
}

func NewUserService(users repo.UserRepository, adoptions repo.AdoptionRepository, files ObjectStore, logger logrus.FieldLogger) *UserService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &UserService{Users: users, Adoptions: adoptions, Files: files, Logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type UpdateUserInput struct {
	FirstName *string      `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName  *string      `json:"last_name" validate:"omitempty,min=1,max=50"`
	Email     *string      `json:"email" validate:"omitempty,email"`
	Role      *entity.Role `json:"role" validate:"omitempty,oneof=user admin premium"`
}

func (s *UserService) List(ctx context.Context, subj entity.Subject, role entity.Role, p repo.Page) (repo.Paginated[*entity.User], error) {
	var empty repo.Paginated[*entity.User]
	if !subj.IsAdmin() {
		return empty, deny(subj)
	}
	if role != "" && !role.Valid() {
		return empty, apperror.Validation("invalid role filter", map[string]string{"role": "must be one of user, admin, premium"})
	}
	page, err := s.Users.FindPaginated(ctx, repo.UserFilter{Role: role}, p)
	if err != nil {
		return empty, apperror.Internal(err)
	}
	return page, nil
}

// load resolves id, existence and access in that order.
func (s *UserService) load(ctx context.Context, subj entity.Subject, id string) (*entity.User, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	if !subj.Authenticated() {
		return nil, deny(subj)
	}
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if !policy.CanAccessUser(subj, u.ID) {
		return nil, deny(subj)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, subj entity.Subject, id string) (*entity.User, error) {
	return s.load(ctx, subj, id)
}

func (s *UserService) Update(ctx context.Context, subj entity.Subject, id string, in UpdateUserInput) (*entity.User, error) {
	if _, err := s.load(ctx, subj, id); err != nil {
		return nil, err
	}
	if in.FirstName == nil && in.LastName == nil && in.Email == nil && in.Role == nil {
		return nil, apperror.Validation("no fields to update", nil)
	}
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in.FirstName, in.LastName = trim(in.FirstName), trim(in.LastName)
	if in.Email != nil {
		e := entity.NormalizeEmail(*in.Email)
		in.Email = &e
	}
	if details := validation.Struct(in); details != nil {
		return nil, apperror.Validation("invalid payload", details)
	}
	if in.Role != nil && !policy.CanChangeRole(subj) {
		return nil, apperror.Forbidden("only admins can change roles")
	}
	u, err := s.Users.Patch(ctx, id, repo.UserPatch{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Role: in.Role})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, storeErr(err, "user not found")
	}
	return u, nil
}

// Delete refuses users who still own adopted pets or have a pending or
// approved adoption.
func (s *UserService) Delete(ctx context.Context, subj entity.Subject, id string) error {
	u, err := s.load(ctx, subj, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteUser(subj, u) {
		return apperror.Forbidden("you are not allowed to delete this user")
	}
	if len(u.Pets) > 0 {
		return apperror.Validation("user owns adopted pets and cannot be deleted", map[string]string{"pets": fmt.Sprintf("%d adopted", len(u.Pets))})
	}
	for _, st := range []entity.AdoptionStatus{entity.AdoptionPending, entity.AdoptionApproved} {
		n, err := s.Adoptions.Count(ctx, repo.AdoptionFilter{Owner: id, Status: st})
		if err != nil {
			return apperror.Internal(err)
		}
		if n > 0 {
			return apperror.Validation("user has adoptions in progress and cannot be deleted", map[string]string{"adoptions": fmt.Sprintf("%d %s", n, st)})
		}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return storeErr(err, "user not found")
	}
	if s.Files != nil {
		for _, d := range u.Documents {
			if err := s.Files.Delete(ctx, documentPath(u.ID, d)); err != nil {
				s.Logger.WithError(err).WithField("document_id", d.ID).Warn("remove stored document failed")
			}
		}
	}
	s.Logger.WithFields(logrus.Fields{"user_id": id, "by": subj.ID}).Info("user deleted")
	return nil
}

func (s *UserService) Documents(ctx context.Context, subj entity.Subject, id string) ([]entity.Document, error) {
	u, err := s.load(ctx, subj, id)
	if err != nil {
		return nil, err
	}
	if u.Documents == nil {
		return []entity.Document{}, nil
	}
	return u.Documents, nil
}

// AddDocuments stores files and records them on the user, keeping at most
// entity.MaxDocuments per user.
func (s *UserService) AddDocuments(ctx context.Context, subj entity.Subject, id string, files []Upload) ([]entity.Document, error) {
	u, err := s.load(ctx, subj, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperror.Validation("no files uploaded", map[string]string{"documents": "is required"})
	}
	if len(u.Documents)+len(files) > entity.MaxDocuments {
		return nil, apperror.Validation(
			fmt.Sprintf("cannot keep more than %d documents (current %d, uploading %d)", entity.MaxDocuments, len(u.Documents), len(files)),
			map[string]string{"documents": fmt.Sprintf("at most %d per user", entity.MaxDocuments)})
	}
	if s.Files == nil {
		return nil, errStorageNotConfigured
	}

	added := make([]entity.Document, 0, len(files))
	for _, f := range files {
		d := entity.Document{
			ID:         helpers.NewID(),
			Name:       SanitizeFileName(f.Name),
			FileType:   f.ContentType,
			FileSize:   f.Size,
			UploadedAt: s.now(),
		}
		objectPath := documentPath(u.ID, d)
		ref, err := s.Files.Put(ctx, objectPath, f.ContentType, f.Body)
		if err != nil {
			return added, apperror.Internal(fmt.Errorf("store document: %w", err))
		}
		d.Reference = ref
		if err := s.Users.AddDocument(ctx, u.ID, d); err != nil {
			_ = s.Files.Delete(ctx, objectPath)
			if errors.Is(err, repo.ErrConditionFailed) {
				return added, apperror.Validation(fmt.Sprintf("cannot keep more than %d documents", entity.MaxDocuments), nil)
			}
			return added, storeErr(err, "user not found")
		}
		added = append(added, d)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "count": len(added)}).Info("documents uploaded")
	return added, nil
}

func (s *UserService) RemoveDocument(ctx context.Context, subj entity.Subject, id, docID string) error {
	if err := checkIDs(id, docID); err != nil {
		return err
	}
	u, err := s.load(ctx, subj, id)
	if err != nil {
		return err
	}
	var doc *entity.Document
	for i := range u.Documents {
		if u.Documents[i].ID == docID {
			doc = &u.Documents[i]
			break
		}
	}
	if doc == nil {
		return apperror.NotFound("document not found")
	}
	if err := s.Users.RemoveDocument(ctx, u.ID, docID); err != nil {
		return storeErr(err, "document not found")
	}
	if s.Files != nil {
		if err := s.Files.Delete(ctx, documentPath(u.ID, *doc)); err != nil {
			s.Logger.WithError(err).WithField("document_id", docID).Warn("remove stored document failed")
		}
	}
	return nil
}

func documentPath(userID string, d entity.Document) string {
	return path.Join("documents", userID, d.ID+strings.ToLower(path.Ext(d.Name)))
}

// SanitizeFileName drops directories and markup characters and caps the
// length at 100 characters.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&', '`':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	if utf8.RuneCountInString(name) > maxDocumentName {
		name = string([]rune(name)[:maxDocumentName])
	}
	return name
}
