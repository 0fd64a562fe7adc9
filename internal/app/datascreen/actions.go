package datascreen

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

// Create validates in and, if it passes, asks the store to create the
// record. Input problems come back as *datasource.ValidationError before
// any store call. A collision on (indicator, period) comes back as
// *datasource.DuplicateError naming the existing record.
func (s *Screen) Create(ctx context.Context, in datasource.CreateInput) (models.IndicatorDataRecord, error) {
	ind, err := s.indicatorFor(ctx, in.IndicatorID)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	rec, err := datasource.ParseCreate(in, ind)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	actor, err := s.actor(ctx)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}

	out, err := s.cfg.Backend.Create(ctx, actor, rec)
	s.cfg.Metrics.Action(string(s.cfg.Category), events.ActionCreated, err)
	if err != nil {
		s.logFailure("create", "", err)
		return models.IndicatorDataRecord{}, err
	}
	s.afterChange(ctx, events.New(events.ActionCreated, string(s.cfg.Category), actor.ID, out.ID))
	return out, nil
}

// Update applies a partial change to a record shown on this screen.
func (s *Screen) Update(ctx context.Context, id string, in datasource.UpdateInput) (models.IndicatorDataRecord, error) {
	patch, err := datasource.ParsePatch(in)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	if err := s.requireRecord(ctx, id); err != nil {
		return models.IndicatorDataRecord{}, err
	}
	actor, err := s.actor(ctx)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}

	out, err := s.cfg.Backend.Update(ctx, actor, id, patch)
	s.cfg.Metrics.Action(string(s.cfg.Category), events.ActionUpdated, err)
	if err != nil {
		s.logFailure("update", id, err)
		return models.IndicatorDataRecord{}, err
	}
	s.afterChange(ctx, events.New(events.ActionUpdated, string(s.cfg.Category), actor.ID, id))
	return out, nil
}

// Delete removes a record shown on this screen and drops it from the
// selection.
func (s *Screen) Delete(ctx context.Context, id string) error {
	if err := s.requireRecord(ctx, id); err != nil {
		return err
	}
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}

	err = s.cfg.Backend.Delete(ctx, actor, id)
	s.cfg.Metrics.Action(string(s.cfg.Category), events.ActionDeleted, err)
	if err != nil {
		s.logFailure("delete", id, err)
		return err
	}

	s.mu.Lock()
	s.annual.Selection().Remove(id)
	s.inflation.Selection().Remove(id)
	s.mu.Unlock()

	s.afterChange(ctx, events.New(events.ActionDeleted, string(s.cfg.Category), actor.ID, id))
	return nil
}

// Verify promotes a preliminary record to final. Any other status fails
// with datasource.ErrInvalidState.
func (s *Screen) Verify(ctx context.Context, id string) (models.IndicatorDataRecord, error) {
	if err := s.requireRecord(ctx, id); err != nil {
		return models.IndicatorDataRecord{}, err
	}
	actor, err := s.actor(ctx)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}

	out, err := s.cfg.Backend.Verify(ctx, actor, id)
	s.cfg.Metrics.Action(string(s.cfg.Category), events.ActionVerified, err)
	if err != nil {
		s.logFailure("verify", id, err)
		return models.IndicatorDataRecord{}, err
	}
	s.afterChange(ctx, events.New(events.ActionVerified, string(s.cfg.Category), actor.ID, id))
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Screen) actor(ctx context.Context) (datasource.Actor, error) {
	if s.cfg.Credentials == nil {
		return datasource.Actor{}, datasource.ErrNoCredentials
	}
	return s.cfg.Credentials.Actor(ctx)
}

// indicatorFor finds id among the category's indicators. An indicator of
// another category, or none at all, is a validation error on indicator_id.
// An empty id is left for ParseCreate to report.
func (s *Screen) indicatorFor(ctx context.Context, id string) (*models.Indicator, error) {
	if id == "" {
		return nil, nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.indicators {
		if s.indicators[i].ID == id {
			ind := s.indicators[i]
			return &ind, nil
		}
	}
	return nil, datasource.NewValidationError("indicator_id", "Indicator not found in this category.")
}

// requireRecord checks that id is one of the screen's records, so a
// category admin cannot reach records of another category by id.
func (s *Screen) requireRecord(ctx context.Context, id string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locate(id); !ok {
		return fmt.Errorf("record %s: %w", id, datasource.ErrNotFound)
	}
	return nil
}

// afterChange publishes ev and fetches the category again. Neither
// failure undoes the change: a failed publish is logged, a failed fetch
// marks the screen stale so the next read retries.
func (s *Screen) afterChange(ctx context.Context, ev events.Event) {
	if err := s.cfg.Events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish change event failed",
			zap.String("action", ev.Action),
			zap.String("event_id", ev.ID),
			zap.Error(err))
	}
	if err := s.Refresh(ctx); err != nil {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
		s.log.Warn("refresh after change failed", zap.String("action", ev.Action), zap.Error(err))
	}
}

func (s *Screen) logFailure(action, id string, err error) {
	kind := datasource.KindOf(err)
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if id != "" {
		fields = append(fields, zap.String("record_id", id))
	}
	if kind == datasource.KindUnknown {
		s.log.Error("record action failed", fields...)
		return
	}
	s.log.Info("record action rejected", fields...)
}
