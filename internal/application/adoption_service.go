package application

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/policy"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/metrics"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

const (
	defaultApproveNote = "Adopción aprobada"
	defaultRejectNote  = "Adopción rechazada"
	defaultCancelNote  = "Adopción cancelada por el usuario"
)

// EventPublisher announces adoption changes. Failures are logged, never
// returned to the caller: the store is the source of truth.
type EventPublisher interface {
	PublishAdoption(ctx context.Context, ev entity.AdoptionEvent) error
}

// AdoptionService is the only writer of Adoption, Pet.adopted, Pet.owner and
// User.pets. Every method checks ids first, then authorization, then state.
type AdoptionService struct {
	Adoptions repo.AdoptionRepository
	Pets      repo.PetRepository
	Users     repo.UserRepository
	Events    EventPublisher
	Indexer   PetIndexer
	Logger    logrus.FieldLogger

	now func() time.Time
}

func NewAdoptionService(adoptions repo.AdoptionRepository, pets repo.PetRepository, users repo.UserRepository, events EventPublisher, logger logrus.FieldLogger) *AdoptionService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AdoptionService{
		Adoptions: adoptions,
		Pets:      pets,
		Users:     users,
		Events:    events,
		Logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for stamps.
func (s *AdoptionService) WithClock(now func() time.Time) *AdoptionService {
	s.now = now
	return s
}

type CreateAdoptionInput struct {
	Notes       *string
	AdoptionFee *float64
}

type UpdateAdoptionInput struct {
	Status      *entity.AdoptionStatus
	Notes       *string
	AdoptionFee *float64
}

func (in UpdateAdoptionInput) empty() bool {
	return in.Status == nil && in.Notes == nil && in.AdoptionFee == nil
}

type ListAdoptionsInput struct {
	Status entity.AdoptionStatus
	Page   repo.Page
}

func validateNotesFee(notes *string, fee *float64) error {
	fields := map[string]string{}
	if notes != nil && utf8.RuneCountInString(*notes) > entity.MaxNotesLength {
		fields["notes"] = fmt.Sprintf("must be at most %d characters", entity.MaxNotesLength)
	}
	if fee != nil && *fee < 0 {
		fields["adoptionFee"] = "must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid adoption fields", fields)
	}
	return nil
}

func validateStatusFilter(status entity.AdoptionStatus) error {
	if status != "" && !status.Valid() {
		return apperror.Validation("invalid status filter", map[string]string{"status": "must be one of pending, approved, rejected, completed, cancelled"})
	}
	return nil
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if !helpers.IsValidID(id) {
			return apperror.InvalidID("invalid id: " + id)
		}
	}
	return nil
}

func deny(s entity.Subject) error {
	if !s.Authenticated() {
		return apperror.Unauthenticated("authentication required")
	}
	return apperror.Forbidden("you are not allowed to perform this action")
}

// storeErr converts a repository failure into a typed error.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return apperror.NotFound(notFound)
	}
	var typed *apperror.Error
	if errors.As(err, &typed) {
		return typed
	}
	return apperror.Internal(err)
}

func (s *AdoptionService) load(ctx context.Context, id string) (*entity.Adoption, error) {
	a, err := s.Adoptions.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "adoption not found")
	}
	return a, nil
}

func (s *AdoptionService) List(ctx context.Context, subj entity.Subject, in ListAdoptionsInput) (repo.Paginated[*entity.Adoption], error) {
	if !policy.Allow(subj, policy.ListAllAdoptions, policy.Target{}) {
		return repo.Paginated[*entity.Adoption]{}, deny(subj)
	}
	if err := validateStatusFilter(in.Status); err != nil {
		return repo.Paginated[*entity.Adoption]{}, err
	}
	page, err := s.Adoptions.FindPaginated(ctx, repo.AdoptionFilter{Status: in.Status}, in.Page)
	if err != nil {
		return page, apperror.Internal(err)
	}
	return page, nil
}

// Get reads one adoption. The pet's current owner may read it too. Ownership
// writes missing behind an approved or completed adoption are re-applied.
func (s *AdoptionService) Get(ctx context.Context, subj entity.Subject, id string) (*entity.Adoption, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	if !subj.Authenticated() {
		return nil, deny(subj)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	t := policy.Target{Adoption: a}
	if !subj.IsAdmin() && subj.ID != a.Owner {
		if pet, err := s.Pets.FindByID(ctx, a.Pet); err == nil {
			t.PetOwner = pet.Owner
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Internal(err)
		}
	}
	if !policy.Allow(subj, policy.ReadAdoption, t) {
		return nil, deny(subj)
	}
	if a.Status.Owns() {
		if err := s.Repair(ctx, a); err != nil {
			s.Logger.WithError(err).WithField("adoption_id", a.ID).Warn("adoption read-repair failed")
		}
	}
	return a, nil
}

// Create opens a pending request of userID for petID. The unique in-flight
// index decides races; the pre-check only spares a write in the common case.
func (s *AdoptionService) Create(ctx context.Context, subj entity.Subject, userID, petID string, in CreateAdoptionInput) (*entity.Adoption, error) {
	if err := checkIDs(userID, petID); err != nil {
		return nil, err
	}
	if !policy.Allow(subj, policy.CreateAdoption, policy.Target{UserID: userID}) {
		return nil, deny(subj)
	}
	if err := validateNotesFee(in.Notes, in.AdoptionFee); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	pet, err := s.Pets.FindByID(ctx, petID)
	if err != nil {
		return nil, storeErr(err, "pet not found")
	}
	if pet.Adopted {
		return nil, apperror.PetAlreadyAdopted("pet is already adopted")
	}
	if _, err := s.Adoptions.FindInFlightForPet(ctx, petID); err == nil {
		metrics.AdoptionConflict()
		return nil, apperror.ConflictInFlight("pet already has an adoption in progress")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	now := s.now()
	a := &entity.Adoption{
		ID:           helpers.NewID(),
		Owner:        userID,
		Pet:          petID,
		Status:       entity.AdoptionPending,
		AdoptionFee:  in.AdoptionFee,
		AdoptionDate: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if err := s.Adoptions.Insert(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			metrics.AdoptionConflict()
			return nil, apperror.ConflictInFlight("pet already has an adoption in progress")
		}
		return nil, apperror.Internal(err)
	}
	metrics.AdoptionTransition("", string(entity.AdoptionPending))
	s.Logger.WithFields(logrus.Fields{"adoption_id": a.ID, "user_id": userID, "pet_id": petID}).Info("adoption requested")
	s.publish(ctx, a, "", user, pet)
	return a, nil
}

// Update patches notes and fee or, when Status is set, runs the matching
// transition with the supplied notes.
func (s *AdoptionService) Update(ctx context.Context, subj entity.Subject, id string, in UpdateAdoptionInput) (*entity.Adoption, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	if !subj.Authenticated() {
		return nil, deny(subj)
	}
	if in.empty() {
		return nil, apperror.Validation("no fields to update", nil)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperror.Validation("invalid status", map[string]string{"status": "must be one of pending, approved, rejected, completed, cancelled"})
	}
	if err := validateNotesFee(in.Notes, in.AdoptionFee); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	t := policy.Target{Adoption: a}
	if !policy.Allow(subj, policy.PatchNotes, t) {
		return nil, deny(subj)
	}
	if in.AdoptionFee != nil && !policy.Allow(subj, policy.PatchFee, t) {
		return nil, deny(subj)
	}

	if in.Status != nil {
		return s.dispatch(ctx, subj, a, *in.Status, in.Notes, in.AdoptionFee)
	}

	if a.Status.Terminal() {
		return nil, apperror.InvalidTransition(fmt.Sprintf("cannot modify a %s adoption", a.Status))
	}
	updated, err := s.Adoptions.Transition(ctx, a.ID, a.Status, repo.AdoptionPatch{Notes: in.Notes, AdoptionFee: in.AdoptionFee})
	if err != nil {
		if errors.Is(err, repo.ErrConditionFailed) {
			return nil, apperror.InvalidTransition("adoption status changed, retry the update")
		}
		return nil, storeErr(err, "adoption not found")
	}
	return updated, nil
}

func (s *AdoptionService) dispatch(ctx context.Context, subj entity.Subject, a *entity.Adoption, to entity.AdoptionStatus, notes *string, fee *float64) (*entity.Adoption, error) {
	if fee != nil && (to == entity.AdoptionCancelled || to == entity.AdoptionCompleted) {
		return nil, apperror.Validation("adoptionFee cannot be changed when moving to "+string(to), map[string]string{"adoptionFee": "only allowed with approved, rejected or no status"})
	}
	switch to {
	case entity.AdoptionApproved:
		return s.approve(ctx, subj, a, notes, fee)
	case entity.AdoptionRejected:
		return s.reject(ctx, subj, a, notes, fee)
	case entity.AdoptionCancelled:
		return s.cancel(ctx, subj, a, notes)
	case entity.AdoptionCompleted:
		return s.complete(ctx, subj, a, notes)
	}
	return nil, apperror.InvalidTransition(fmt.Sprintf("cannot move a %s adoption to %s", a.Status, to))
}

func (s *AdoptionService) Approve(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error) {
	a, err := s.prepare(ctx, subj, id, notes)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, subj, a, notes, nil)
}

func (s *AdoptionService) Reject(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error) {
	a, err := s.prepare(ctx, subj, id, notes)
	if err != nil {
		return nil, err
	}
	return s.reject(ctx, subj, a, notes, nil)
}

func (s *AdoptionService) Cancel(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error) {
	a, err := s.prepare(ctx, subj, id, notes)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, subj, a, notes)
}

func (s *AdoptionService) Complete(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error) {
	a, err := s.prepare(ctx, subj, id, notes)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, subj, a, notes)
}

func (s *AdoptionService) prepare(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	if !subj.Authenticated() {
		return nil, deny(subj)
	}
	if err := validateNotesFee(notes, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *AdoptionService) approve(ctx context.Context, subj entity.Subject, a *entity.Adoption, notes *string, fee *float64) (*entity.Adoption, error) {
	if !policy.Allow(subj, policy.ApproveAdoption, policy.Target{Adoption: a}) {
		return nil, deny(subj)
	}
	if a.Status == entity.AdoptionApproved {
		// repeat approval: finish whatever the first attempt left undone
		if err := s.Repair(ctx, a); err != nil {
			return nil, apperror.Internal(err)
		}
		return a, nil
	}
	if a.Status != entity.AdoptionPending {
		return nil, apperror.InvalidTransition(fmt.Sprintf("cannot approve a %s adoption", a.Status))
	}
	pet, err := s.Pets.FindByID(ctx, a.Pet)
	if err != nil {
		return nil, storeErr(err, "pet not found")
	}
	if pet.Adopted && pet.Owner != a.Owner {
		return nil, apperror.PetAlreadyAdopted("pet is already adopted")
	}
	// the requester must still exist to receive the pet
	owner, err := s.Users.FindByID(ctx, a.Owner)
	if err != nil {
		return nil, storeErr(err, "adoption owner not found")
	}

	updated, err := s.move(ctx, a, entity.AdoptionApproved, orDefault(notes, defaultApproveNote), fee)
	if err != nil {
		return nil, err
	}
	if err := s.applyOwnership(ctx, updated, pet); err != nil {
		// the adoption is approved; a later read or approve converges the rest
		s.Logger.WithError(err).WithField("adoption_id", updated.ID).Error("approval side effects incomplete")
		return nil, apperror.Internal(err)
	}
	s.publish(ctx, updated, entity.AdoptionPending, owner, pet)
	return updated, nil
}

func (s *AdoptionService) reject(ctx context.Context, subj entity.Subject, a *entity.Adoption, notes *string, fee *float64) (*entity.Adoption, error) {
	if !policy.Allow(subj, policy.RejectAdoption, policy.Target{Adoption: a}) {
		return nil, deny(subj)
	}
	if a.Status != entity.AdoptionPending {
		return nil, apperror.InvalidTransition(fmt.Sprintf("cannot reject a %s adoption", a.Status))
	}
	updated, err := s.move(ctx, a, entity.AdoptionRejected, orDefault(notes, defaultRejectNote), fee)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, entity.AdoptionPending, nil, nil)
	return updated, nil
}

func (s *AdoptionService) cancel(ctx context.Context, subj entity.Subject, a *entity.Adoption, notes *string) (*entity.Adoption, error) {
	if !policy.Allow(subj, policy.CancelAdoption, policy.Target{Adoption: a}) {
		return nil, deny(subj)
	}
	if a.Status != entity.AdoptionPending {
		return nil, apperror.InvalidTransition(fmt.Sprintf("cannot cancel a %s adoption", a.Status))
	}
	updated, err := s.move(ctx, a, entity.AdoptionCancelled, orDefault(notes, defaultCancelNote), nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, entity.AdoptionPending, nil, nil)
	return updated, nil
}

func (s *AdoptionService) complete(ctx context.Context, subj entity.Subject, a *entity.Adoption, notes *string) (*entity.Adoption, error) {
	if !policy.Allow(subj, policy.CompleteAdoption, policy.Target{Adoption: a}) {
		return nil, deny(subj)
	}
	if a.Status != entity.AdoptionApproved {
		return nil, apperror.InvalidTransition(fmt.Sprintf("cannot complete a %s adoption", a.Status))
	}
	updated, err := s.move(ctx, a, entity.AdoptionCompleted, notes, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Repair(ctx, updated); err != nil {
		s.Logger.WithError(err).WithField("adoption_id", updated.ID).Warn("completion read-repair failed")
	}
	s.publish(ctx, updated, entity.AdoptionApproved, nil, nil)
	return updated, nil
}

// move applies a guarded status change and its timestamp.
func (s *AdoptionService) move(ctx context.Context, a *entity.Adoption, to entity.AdoptionStatus, notes *string, fee *float64) (*entity.Adoption, error) {
	now := s.now()
	patch := repo.AdoptionPatch{Status: &to, Notes: notes, AdoptionFee: fee}
	switch to {
	case entity.AdoptionApproved:
		patch.ApprovedAt = &now
	case entity.AdoptionRejected:
		patch.RejectedAt = &now
	case entity.AdoptionCancelled:
		patch.CancelledAt = &now
	case entity.AdoptionCompleted:
		patch.CompletedAt = &now
	}
	updated, err := s.Adoptions.Transition(ctx, a.ID, a.Status, patch)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrConditionFailed):
		return nil, apperror.InvalidTransition(fmt.Sprintf("adoption is no longer %s", a.Status))
	case errors.Is(err, repo.ErrDuplicate):
		metrics.AdoptionConflict()
		return nil, apperror.ConflictInFlight("pet already has an adoption in progress")
	default:
		return nil, storeErr(err, "adoption not found")
	}
	metrics.AdoptionTransition(string(a.Status), string(to))
	s.Logger.WithFields(logrus.Fields{
		"adoption_id": a.ID,
		"from":        a.Status,
		"to":          to,
	}).Info("adoption status changed")
	return updated, nil
}

// applyOwnership flips the pet to the adoption owner and adds it to the
// owner's pets. Both writes are idempotent.
func (s *AdoptionService) applyOwnership(ctx context.Context, a *entity.Adoption, pet *entity.Pet) error {
	if pet == nil || !pet.Adopted || pet.Owner != a.Owner || pet.Status != entity.PetAdopted {
		adopted, owner, status := true, a.Owner, entity.PetAdopted
		flipped, err := s.Pets.Patch(ctx, a.Pet, repo.PetPatch{Adopted: &adopted, Owner: &owner, Status: &status})
		if err != nil {
			return fmt.Errorf("flip pet %s: %w", a.Pet, err)
		}
		if s.Indexer != nil {
			if err := s.Indexer.IndexPet(ctx, flipped); err != nil {
				s.Logger.WithError(err).WithField("pet_id", a.Pet).Warn("index pet failed")
			}
		}
	}
	if err := s.Users.PushPet(ctx, a.Owner, a.Pet); err != nil {
		return fmt.Errorf("push pet %s to user %s: %w", a.Pet, a.Owner, err)
	}
	return nil
}

// Repair re-applies the ownership writes for an approved or completed
// adoption when the pet or the owner's pets do not reflect it yet.
func (s *AdoptionService) Repair(ctx context.Context, a *entity.Adoption) error {
	if !a.Status.Owns() {
		return nil
	}
	pet, err := s.Pets.FindByID(ctx, a.Pet)
	if err != nil {
		return fmt.Errorf("load pet %s: %w", a.Pet, err)
	}
	if pet.Adopted && pet.Owner != "" && pet.Owner != a.Owner {
		s.Logger.WithFields(logrus.Fields{
			"adoption_id": a.ID,
			"pet_id":      pet.ID,
			"pet_owner":   pet.Owner,
		}).Warn("pet owned by another user, skipping repair")
		return nil
	}
	user, err := s.Users.FindByID(ctx, a.Owner)
	if err != nil {
		return fmt.Errorf("load user %s: %w", a.Owner, err)
	}
	if pet.Adopted && pet.Owner == a.Owner && pet.Status == entity.PetAdopted && user.OwnsPet(a.Pet) {
		return nil
	}
	metrics.AdoptionRepair()
	return s.applyOwnership(ctx, a, pet)
}

// Delete removes a pending or rejected adoption.
func (s *AdoptionService) Delete(ctx context.Context, subj entity.Subject, id string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	if !subj.Authenticated() {
		return deny(subj)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Allow(subj, policy.DeleteAdoption, policy.Target{Adoption: a}) {
		return deny(subj)
	}
	if a.Status != entity.AdoptionPending && a.Status != entity.AdoptionRejected {
		return apperror.InvalidTransition(fmt.Sprintf("cannot delete an adoption in status %s", a.Status))
	}
	if err := s.Adoptions.Delete(ctx, a.ID, entity.AdoptionPending, entity.AdoptionRejected); err != nil {
		if errors.Is(err, repo.ErrConditionFailed) {
			return apperror.InvalidTransition("adoption status changed, it can no longer be deleted")
		}
		return storeErr(err, "adoption not found")
	}
	s.Logger.WithField("adoption_id", a.ID).Info("adoption deleted")
	return nil
}

func (s *AdoptionService) ListForUser(ctx context.Context, subj entity.Subject, userID string, in ListAdoptionsInput) (repo.Paginated[*entity.Adoption], error) {
	var empty repo.Paginated[*entity.Adoption]
	if err := checkIDs(userID); err != nil {
		return empty, err
	}
	if !policy.Allow(subj, policy.ListUserAdoptions, policy.Target{UserID: userID}) {
		return empty, deny(subj)
	}
	if err := validateStatusFilter(in.Status); err != nil {
		return empty, err
	}
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		return empty, storeErr(err, "user not found")
	}
	page, err := s.Adoptions.FindUserAdoptions(ctx, userID, in.Status, in.Page)
	if err != nil {
		return empty, apperror.Internal(err)
	}
	return page, nil
}

// Stats counts adoptions per status and adopted pets, for operators.
func (s *AdoptionService) Stats(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(entity.AllAdoptionStatuses)+1)
	for _, st := range entity.AllAdoptionStatuses {
		n, err := s.Adoptions.Count(ctx, repo.AdoptionFilter{Status: st})
		if err != nil {
			return nil, err
		}
		out["adoptions_"+string(st)] = n
	}
	adopted := true
	n, err := s.Pets.Count(ctx, repo.PetFilter{Adopted: &adopted})
	if err != nil {
		return nil, err
	}
	out["pets_adopted"] = n
	return out, nil
}

// publish is best effort; user and pet are looked up when not supplied.
func (s *AdoptionService) publish(ctx context.Context, a *entity.Adoption, from entity.AdoptionStatus, user *entity.User, pet *entity.Pet) {
	if s.Events == nil {
		return
	}
	if user == nil {
		user, _ = s.Users.FindByID(ctx, a.Owner)
	}
	if pet == nil {
		pet, _ = s.Pets.FindByID(ctx, a.Pet)
	}
	ev := entity.AdoptionEvent{
		Type:       entity.EventTypeFor(a.Status),
		AdoptionID: a.ID,
		From:       from,
		Status:     a.Status,
		Notes:      a.Notes,
		OwnerID:    a.Owner,
		PetID:      a.Pet,
		OccurredAt: s.now(),
	}
	if user != nil {
		ev.OwnerEmail = user.Email
		ev.OwnerName = user.FullName()
	}
	if pet != nil {
		ev.PetName = pet.Name
	}
	if err := s.Events.PublishAdoption(ctx, ev); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"adoption_id": a.ID, "type": ev.Type}).Warn("publish adoption event failed")
	}
}

func orDefault(p *string, def string) *string {
	if p != nil && *p != "" {
		return p
	}
	return &def
}
