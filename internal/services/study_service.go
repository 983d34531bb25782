package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/morflash/morflash/internal/errors"
	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/models"
	"github.com/morflash/morflash/internal/scheduler"
	"github.com/morflash/morflash/internal/store"
)

// StudyService handles reviewing: listing cards, finding what is due
// and recording graded outcomes.
type StudyService interface {
	CardsInOrder(ctx context.Context, handleID string) ([]models.Card, error)
	DueCards(ctx context.Context, handleID string, asOf time.Time) ([]models.Card, error)
	ReviewCard(ctx context.Context, handleID string, cardID int64, grade scheduler.Grade, now time.Time) (*models.ReviewState, error)
}

type studyService struct {
	reg    *Registry
	params scheduler.Params
}

// NewStudyService creates a new StudyService using the given scheduler
// constants.
func NewStudyService(reg *Registry, params scheduler.Params) StudyService {
	return &studyService{reg: reg, params: params}
}

func (s *studyService) CardsInOrder(ctx context.Context, handleID string) ([]models.Card, error) {
	d, err := s.reg.get(handleID)
	if err != nil {
		return nil, err
	}
	cards, err := d.Store().CardsInOrder(ctx, d.Manifest().DeckID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

func (s *studyService) DueCards(ctx context.Context, handleID string, asOf time.Time) ([]models.Card, error) {
	d, err := s.reg.get(handleID)
	if err != nil {
		return nil, err
	}
	cards, err := d.Store().DueCards(ctx, d.Manifest().DeckID, asOf)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

func (s *studyService) ReviewCard(ctx context.Context, handleID string, cardID int64, grade scheduler.Grade, now time.Time) (*models.ReviewState, error) {
	log := logger.FromContext(ctx)

	// Grade validity is a boundary check; the transition itself is total.
	if !grade.Valid() {
		return nil, errors.NewValidationError("grade", "must be correct or incorrect")
	}

	d, err := s.reg.get(handleID)
	if err != nil {
		return nil, err
	}
	st := d.Store()

	prior, err := st.ReviewState(ctx, cardID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError("card", cardID)
		}
		return nil, errors.NewInternalError(err)
	}

	next := s.params.Review(*prior, grade, now)
	log.Debug("review card %d: grade=%s interval %d->%d ease %.2f->%.2f",
		cardID, grade, prior.IntervalDays, next.IntervalDays, prior.EaseFactor, next.EaseFactor)

	if err := st.UpdateReviewState(ctx, cardID, next); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError("card", cardID)
		}
		return nil, errors.NewInternalError(err)
	}
	return &next, nil
}
