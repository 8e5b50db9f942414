package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"plotboard/app/internal/db"
	"plotboard/app/internal/plot"
)

const notFoundDetail = "Plot not found"

// plotView is the JSON representation of a stored plot.
type plotView struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Work    string  `json:"work"`
	Status  string  `json:"status"`
	Summary *string `json:"summary"`
}

// plotPayload is the request body shared by create and full-replace update.
type plotPayload struct {
	Title   string  `json:"title" maxLength:"200" doc:"Plot title"`
	Work    string  `json:"work" maxLength:"100" doc:"Work the plot belongs to"`
	Status  string  `json:"status" maxLength:"50" doc:"Editorial status"`
	Summary *string `json:"summary,omitempty" doc:"Optional long-form summary"`
}

type listPlotsInput struct {
	Work   string `query:"work" doc:"Exact match on the work field"`
	Status string `query:"status" doc:"Exact match on the status field"`
	Query  string `query:"q" doc:"Case-insensitive substring search over title and summary"`
}

type plotIDInput struct {
	ID int64 `path:"id"`
}

type createPlotInput struct {
	Body plotPayload
}

type updatePlotInput struct {
	ID   int64 `path:"id"`
	Body plotPayload
}

type pingResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

type plotResponse struct {
	Body plotView
}

type plotListResponse struct {
	Body []plotView
}

type deletePlotResponse struct {
	Body struct {
		Message string `json:"message"`
		ID      int64  `json:"id"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerPingRoute() {
	huma.Get(s.api, "/ping", s.pingHandler, func(op *huma.Operation) {
		op.Summary = "Liveness ping"
	})
}

func (s *Server) registerListPlotsRoute() {
	huma.Get(s.api, "/plots", s.listPlotsHandler, func(op *huma.Operation) {
		op.Summary = "List plots with optional filters"
	})
}

func (s *Server) registerGetPlotRoute() {
	huma.Get(s.api, "/plots/{id}", s.getPlotHandler, func(op *huma.Operation) {
		op.Summary = "Fetch a plot by id"
	})
}

func (s *Server) registerCreatePlotRoute() {
	huma.Post(s.api, "/plots", s.createPlotHandler, func(op *huma.Operation) {
		op.Summary = "Create a plot"
	})
}

func (s *Server) registerUpdatePlotRoute() {
	huma.Put(s.api, "/plots/{id}", s.updatePlotHandler, func(op *huma.Operation) {
		op.Summary = "Replace a plot"
	})
}

func (s *Server) registerDeletePlotRoute() {
	huma.Delete(s.api, "/plots/{id}", s.deletePlotHandler, func(op *huma.Operation) {
		op.Summary = "Delete a plot"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) pingHandler(_ context.Context, _ *struct{}) (*pingResponse, error) {
	resp := &pingResponse{}
	resp.Body.Message = "pong"
	return resp, nil
}

func (s *Server) listPlotsHandler(ctx context.Context, input *listPlotsInput) (*plotListResponse, error) {
	filter := plot.Filter{
		Work:   input.Work,
		Status: input.Status,
		Query:  input.Query,
	}

	plots, err := s.plots.ListPlots(ctx, filter)
	if err != nil {
		s.recordError(ctx, err, "listing plots", logrus.Fields{"work": input.Work, "status": input.Status})
		return nil, huma.Error500InternalServerError("listing plots failed")
	}

	// Always an array in the response, even when nothing matched.
	views := make([]plotView, 0, len(plots))
	for _, p := range plots {
		views = append(views, viewFromPlot(p))
	}

	return &plotListResponse{Body: views}, nil
}

func (s *Server) getPlotHandler(ctx context.Context, input *plotIDInput) (*plotResponse, error) {
	found, err := s.plots.GetPlot(ctx, input.ID)
	if err != nil {
		if eris.Is(err, plot.ErrNotFound) {
			return nil, huma.Error404NotFound(notFoundDetail)
		}
		s.recordError(ctx, err, "fetching plot", logrus.Fields{"plot_id": input.ID})
		return nil, huma.Error500InternalServerError("fetching plot failed")
	}

	return &plotResponse{Body: viewFromPlot(*found)}, nil
}

func (s *Server) createPlotHandler(ctx context.Context, input *createPlotInput) (*plotResponse, error) {
	created, err := s.plots.CreatePlot(ctx, inputFromPayload(input.Body))
	if err != nil {
		s.recordError(ctx, err, "creating plot", logrus.Fields{"title": input.Body.Title})
		return nil, huma.Error500InternalServerError("creating plot failed")
	}

	return &plotResponse{Body: viewFromPlot(*created)}, nil
}

func (s *Server) updatePlotHandler(ctx context.Context, input *updatePlotInput) (*plotResponse, error) {
	updated, err := s.plots.UpdatePlot(ctx, input.ID, inputFromPayload(input.Body))
	if err != nil {
		if eris.Is(err, plot.ErrNotFound) {
			return nil, huma.Error404NotFound(notFoundDetail)
		}
		s.recordError(ctx, err, "updating plot", logrus.Fields{"plot_id": input.ID})
		return nil, huma.Error500InternalServerError("updating plot failed")
	}

	return &plotResponse{Body: viewFromPlot(*updated)}, nil
}

func (s *Server) deletePlotHandler(ctx context.Context, input *plotIDInput) (*deletePlotResponse, error) {
	if err := s.plots.DeletePlot(ctx, input.ID); err != nil {
		if eris.Is(err, plot.ErrNotFound) {
			return nil, huma.Error404NotFound(notFoundDetail)
		}
		s.recordError(ctx, err, "deleting plot", logrus.Fields{"plot_id": input.ID})
		return nil, huma.Error500InternalServerError("deleting plot failed")
	}

	resp := &deletePlotResponse{}
	resp.Body.Message = "deleted"
	resp.Body.ID = input.ID
	return resp, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func viewFromPlot(p plot.Plot) plotView {
	return plotView{
		ID:      p.ID,
		Title:   p.Title,
		Work:    p.Work,
		Status:  p.Status,
		Summary: p.Summary,
	}
}

func inputFromPayload(p plotPayload) plot.Input {
	return plot.Input{
		Title:   p.Title,
		Work:    p.Work,
		Status:  p.Status,
		Summary: p.Summary,
	}
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
