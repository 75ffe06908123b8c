package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// SchemeWithProgress pairs a savings scheme with its progress computed
// from the budgets overlapping its date range.
type SchemeWithProgress struct {
	Scheme   core.Scheme
	Progress core.SchemeProgress
}

// SchemeService manages savings schemes. Progress is never stored; every
// read recomputes it from the user's budgets.
type SchemeService struct {
	storage *storage.SQLiteRepository
	alerts  AlertPublisher
	now     func() time.Time
}

func NewSchemeService(storage *storage.SQLiteRepository, alerts AlertPublisher) *SchemeService {
	return &SchemeService{storage: storage, alerts: alerts, now: time.Now}
}

func (s *SchemeService) CreateScheme(ctx context.Context, userID string, startDate, endDate time.Time, minAmount core.Money) (SchemeWithProgress, error) {
	scheme := core.Scheme{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		MinAmount: minAmount,
		CreatedAt: s.now(),
	}
	if err := scheme.Validate(); err != nil {
		return SchemeWithProgress{}, err
	}

	if err := s.storage.CreateScheme(ctx, scheme); err != nil {
		return SchemeWithProgress{}, fmt.Errorf("create scheme: %w", err)
	}
	return s.withProgress(ctx, scheme)
}

func (s *SchemeService) EditScheme(ctx context.Context, userID, schemeID string, startDate, endDate time.Time, minAmount core.Money) (SchemeWithProgress, error) {
	existing, err := s.getOwnedScheme(ctx, userID, schemeID)
	if err != nil {
		return SchemeWithProgress{}, err
	}

	existing.StartDate = startDate
	existing.EndDate = endDate
	existing.MinAmount = minAmount
	if err := existing.Validate(); err != nil {
		return SchemeWithProgress{}, err
	}

	if err := s.storage.UpdateScheme(ctx, existing); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SchemeWithProgress{}, ErrSchemeNotFound
		}
		return SchemeWithProgress{}, fmt.Errorf("update scheme: %w", err)
	}
	return s.withProgress(ctx, existing)
}

func (s *SchemeService) DeleteScheme(ctx context.Context, userID, schemeID string) error {
	if _, err := s.getOwnedScheme(ctx, userID, schemeID); err != nil {
		return err
	}
	if err := s.storage.DeleteScheme(ctx, schemeID); err != nil {
		return fmt.Errorf("delete scheme: %w", err)
	}
	return nil
}

// ListSchemes returns every scheme of the user with freshly computed
// progress.
func (s *SchemeService) ListSchemes(ctx context.Context, userID string) ([]SchemeWithProgress, error) {
	schemes, err := s.storage.ListSchemes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	if len(schemes) == 0 {
		return nil, nil
	}

	budgets, err := s.storage.BudgetsByMonth(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load budgets for progress: %w", err)
	}

	out := make([]SchemeWithProgress, 0, len(schemes))
	now := s.now()
	for _, scheme := range schemes {
		progress := core.ComputeProgress(scheme, budgets, now)
		s.maybePublishGoalAlert(ctx, scheme, progress)
		out = append(out, SchemeWithProgress{Scheme: scheme, Progress: progress})
	}
	return out, nil
}

func (s *SchemeService) withProgress(ctx context.Context, scheme core.Scheme) (SchemeWithProgress, error) {
	budgets, err := s.storage.BudgetsByMonth(ctx, scheme.UserID)
	if err != nil {
		return SchemeWithProgress{}, fmt.Errorf("load budgets for progress: %w", err)
	}
	progress := core.ComputeProgress(scheme, budgets, s.now())
	s.maybePublishGoalAlert(ctx, scheme, progress)
	return SchemeWithProgress{Scheme: scheme, Progress: progress}, nil
}

func (s *SchemeService) getOwnedScheme(ctx context.Context, userID, schemeID string) (core.Scheme, error) {
	scheme, err := s.storage.GetScheme(ctx, schemeID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Scheme{}, ErrSchemeNotFound
	}
	if err != nil {
		return core.Scheme{}, fmt.Errorf("get scheme: %w", err)
	}
	if scheme.UserID != userID {
		return core.Scheme{}, ErrSchemeNotFound
	}
	return scheme, nil
}

func (s *SchemeService) maybePublishGoalAlert(ctx context.Context, scheme core.Scheme, progress core.SchemeProgress) {
	if s.alerts == nil || progress.Progress < 100 {
		return
	}

	settings, err := s.storage.GetSettings(ctx, scheme.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load settings for goal alert",
			"user_id", scheme.UserID, "error", err)
		return
	}
	if !settings.AllowGoalAlert {
		return
	}

	alert := amqp.GoalAlert{
		UserID:         scheme.UserID,
		SchemeID:       scheme.ID,
		Progress:       progress.Progress,
		SavedCents:     progress.Saved.Cents,
		MinAmountCents: scheme.MinAmount.Cents,
	}
	if err := s.alerts.PublishGoalAlert(ctx, alert); err != nil {
		slog.ErrorContext(ctx, "Failed to publish goal alert",
			"scheme_id", scheme.ID, "error", err)
	}
}
