package datascreen

import (
	"context"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BulkFailure is one id a bulk action could not apply.
type BulkFailure struct {
	ID      string          `json:"id"`
	Kind    datasource.Kind `json:"kind"`
	Message string          `json:"message"`
}

// BulkResult reports a bulk action item by item. Every selected id ends up
// in exactly one of Succeeded or Failed.
type BulkResult struct {
	BatchID   string        `json:"batch_id"`
	Action    string        `json:"action"`
	Requested int           `json:"requested"`
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// OK reports whether every item succeeded.
func (r BulkResult) OK() bool { return len(r.Failed) == 0 }

// BulkDelete deletes every record selected in the table.
func (s *Screen) BulkDelete(ctx context.Context, kind tableview.Kind) (BulkResult, error) {
	return s.bulk(ctx, kind, events.ActionBulkDelete, func(ctx context.Context, actor datasource.Actor, id string) error {
		return s.cfg.Backend.Delete(ctx, actor, id)
	})
}

// BulkVerify verifies every record selected in the table. Records that are
// not preliminary fail individually with datasource.KindInvalidState.
func (s *Screen) BulkVerify(ctx context.Context, kind tableview.Kind) (BulkResult, error) {
	return s.bulk(ctx, kind, events.ActionBulkVerify, func(ctx context.Context, actor datasource.Actor, id string) error {
		_, err := s.cfg.Backend.Verify(ctx, actor, id)
		return err
	})
}

// bulk applies op to each selected id, in selection order, with bounded
// parallelism. One failing id does not stop the others. Succeeded ids
// leave the selection; failed ids stay selected so the user can retry them.
func (s *Screen) bulk(ctx context.Context, kind tableview.Kind, action string,
	op func(context.Context, datasource.Actor, string) error) (BulkResult, error) {

	s.mu.Lock()
	t, err := s.table(kind)
	var ids []string
	if err == nil {
		ids = t.Selection().IDs()
	}
	s.mu.Unlock()
	if err != nil {
		return BulkResult{}, err
	}
	if len(ids) == 0 {
		return BulkResult{}, datasource.NewValidationError("", "No records selected.")
	}

	actor, err := s.actor(ctx)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{
		BatchID:   uuid.NewString(),
		Action:    action,
		Requested: len(ids),
		Succeeded: []string{},
		Failed:    []BulkFailure{},
	}
	log := s.log.With(zap.String("batch_id", res.BatchID), zap.String("action", action), zap.String("table", string(kind)))

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(s.cfg.BulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = op(ctx, actor, id)
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range ids {
		if errs[i] == nil {
			res.Succeeded = append(res.Succeeded, id)
			continue
		}
		res.Failed = append(res.Failed, BulkFailure{
			ID:      id,
			Kind:    datasource.KindOf(errs[i]),
			Message: errs[i].Error(),
		})
		log.Info("bulk item failed", zap.String("record_id", id), zap.Error(errs[i]))
	}

	s.cfg.Metrics.BulkItems(action, len(res.Succeeded), len(res.Failed))
	log.Info("bulk action finished",
		zap.Int("requested", res.Requested),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)))

	if len(res.Succeeded) == 0 {
		return res, nil
	}

	s.mu.Lock()
	t.Selection().Remove(res.Succeeded...)
	s.mu.Unlock()

	ev := events.New(action, string(s.cfg.Category), actor.ID, res.Succeeded...)
	ev.BatchID = res.BatchID
	s.afterChange(ctx, ev)
	return res, nil
}
