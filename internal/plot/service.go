package plot

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the plot operations exposed over the transport layer.
type Service interface {
	ListPlots(ctx context.Context, filter Filter) ([]Plot, error)
	GetPlot(ctx context.Context, id int64) (*Plot, error)
	CreatePlot(ctx context.Context, input Input) (*Plot, error)
	UpdatePlot(ctx context.Context, id int64, input Input) (*Plot, error)
	DeletePlot(ctx context.Context, id int64) error
}

// ErrNotFound indicates the requested plot id does not exist in the store.
var ErrNotFound = eris.New("plot not found")

// Input carries the client-supplied fields for create and full-replace update.
type Input struct {
	Title   string
	Work    string
	Status  string
	Summary *string
}

type service struct {
	repo      Repository
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the plot service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("plot repository is required")
	}

	return &service{
		repo:      repo,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) ListPlots(ctx context.Context, filter Filter) ([]Plot, error) {
	plots, err := s.repo.List(ctx, filter)
	if err != nil {
		s.recordError(nil, err, "listing plots from repository")
		return nil, eris.Wrap(err, "listing plots")
	}

	return plots, nil
}

func (s *service) GetPlot(ctx context.Context, id int64) (*Plot, error) {
	plot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"plot_id": id}, err, "retrieving plot from repository")
		return nil, eris.Wrapf(err, "retrieving plot: %d", id)
	}

	if plot == nil {
		return nil, eris.Wrapf(ErrNotFound, "retrieving plot: %d", id)
	}

	return plot, nil
}

func (s *service) CreatePlot(ctx context.Context, input Input) (*Plot, error) {
	plot := &Plot{
		Title:   input.Title,
		Work:    input.Work,
		Status:  input.Status,
		Summary: input.Summary,
	}

	if err := s.repo.Create(ctx, plot); err != nil {
		s.recordError(logrus.Fields{"title": input.Title}, err, "persisting new plot")
		return nil, eris.Wrap(err, "persisting new plot")
	}

	// Re-read the stored row so the response reflects exactly what the
	// store assigned, not just the in-memory draft.
	created, err := s.repo.GetByID(ctx, plot.ID)
	if err != nil {
		s.recordError(logrus.Fields{"plot_id": plot.ID}, err, "refreshing created plot")
		return nil, eris.Wrapf(err, "refreshing created plot: %d", plot.ID)
	}
	if created == nil {
		err := eris.New("created plot missing on re-read")
		s.recordError(logrus.Fields{"plot_id": plot.ID}, err, "refreshing created plot")
		return nil, eris.Wrapf(err, "refreshing created plot: %d", plot.ID)
	}

	return created, nil
}

func (s *service) UpdatePlot(ctx context.Context, id int64, input Input) (*Plot, error) {
	plot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"plot_id": id}, err, "loading plot for update")
		return nil, eris.Wrapf(err, "loading plot for update: %d", id)
	}

	if plot == nil {
		return nil, eris.Wrapf(ErrNotFound, "updating plot: %d", id)
	}

	// Full replace: every mutable field takes the request value, including a
	// nil summary clearing the stored one.
	plot.Title = input.Title
	plot.Work = input.Work
	plot.Status = input.Status
	plot.Summary = input.Summary

	if err := s.repo.Save(ctx, plot); err != nil {
		s.recordError(logrus.Fields{"plot_id": id}, err, "saving updated plot")
		return nil, eris.Wrapf(err, "saving updated plot: %d", id)
	}

	return plot, nil
}

func (s *service) DeletePlot(ctx context.Context, id int64) error {
	plot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"plot_id": id}, err, "loading plot for delete")
		return eris.Wrapf(err, "loading plot for delete: %d", id)
	}

	if plot == nil {
		return eris.Wrapf(ErrNotFound, "deleting plot: %d", id)
	}

	if err := s.repo.Delete(ctx, plot); err != nil {
		s.recordError(logrus.Fields{"plot_id": id}, err, "deleting plot from repository")
		return eris.Wrapf(err, "deleting plot: %d", id)
	}

	return nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
