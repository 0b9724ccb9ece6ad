package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"datavista-backend/internal/charts"
	"datavista-backend/internal/dataset"
	"datavista-backend/internal/narrative"
	"datavista-backend/internal/profile"
	"datavista-backend/internal/report"
	"datavista-backend/internal/session"
	"datavista-backend/pkg/api"
)

// BackendService wires the pipeline stages behind the HTTP surface.
type BackendService struct {
	sessions       *session.Manager
	generator      *narrative.Generator
	maxUploadBytes int64
}

func NewBackendService(sessions *session.Manager, generator *narrative.Generator, maxUploadBytes int64) *BackendService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &BackendService{sessions: sessions, generator: generator, maxUploadBytes: maxUploadBytes}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateSession))
		r.Route("/{session_id}", func(r chi.Router) {
			r.Delete("/", RestHandler(s.EndSession))
			r.Post("/dataset", RestHandler(s.UploadDataset))
			r.Get("/profile", RestHandler(s.GetProfile))
			r.Get("/charts", RestHandler(s.GetCharts))
			r.Post("/narrative", RestHandler(s.GenerateNarrative))
			r.Get("/report", s.DownloadReport)
		})
	})
}

func (s *BackendService) CreateSession(r *http.Request) (any, error) {
	rec, err := s.sessions.Create(r.Context())
	if err != nil {
		slog.Error("error creating session", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create session")
	}
	slog.Info("created session", "session_id", rec.Id)
	return api.Session{Id: rec.Id, CreatedAt: rec.CreationTime, LastActiveAt: rec.LastActiveTime}, nil
}

func (s *BackendService) EndSession(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	if err := s.sessions.End(r.Context(), id); err != nil {
		return nil, domainError(err)
	}
	slog.Info("ended session", "session_id", id)
	return nil, nil
}

// UploadDataset loads an uploaded tabular file into the session, replacing any
// previous dataset, and responds with the computed profile.
func (s *BackendService) UploadDataset(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart upload: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing 'file' form field")
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "upload exceeds %d byte limit", s.maxUploadBytes)
	}

	format, err := dataset.DetectFormat(header.Filename)
	if err != nil {
		return nil, domainError(err)
	}

	ds, err := dataset.Load(file, header.Filename, format)
	if err != nil {
		return nil, domainError(err)
	}

	rep := profile.Profile(ds)
	if err := s.sessions.SetDataset(r.Context(), id, ds, rep); err != nil {
		return nil, domainError(err)
	}

	slog.Info("loaded dataset", "session_id", id, "dataset", ds.Name, "rows", ds.Rows, "cols", len(ds.Columns))
	return rep, nil
}

func (s *BackendService) GetProfile(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	rep, err := s.sessions.Profile(r.Context(), id)
	if err != nil {
		return nil, domainError(err)
	}
	return rep, nil
}

func (s *BackendService) GetCharts(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	rep, err := s.sessions.Profile(r.Context(), id)
	if err != nil {
		return nil, domainError(err)
	}

	var arts []charts.Artifact
	if ds, ok := s.sessions.Dataset(id); ok {
		arts, err = charts.Render(rep, ds)
	} else if rep.Correlation != nil {
		// Profile survived but the raw dataset is gone; the heatmap alone can
		// still be rendered from it.
		var heat charts.Artifact
		heat, err = charts.Heatmap(rep.Correlation)
		arts = []charts.Artifact{heat}
	}
	if err != nil {
		slog.Error("error rendering charts", "session_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to render charts")
	}

	resp := api.ChartsResponse{Charts: make([]api.Chart, 0, len(arts))}
	for _, a := range arts {
		resp.Charts = append(resp.Charts, api.Chart{Caption: a.Caption, PNG: a.PNG})
	}
	return resp, nil
}

// GenerateNarrative calls the external model with the bounded profile summary
// and stores the result on the session. With fallback=true the locally
// rendered summary is stored instead, without any outbound call.
func (s *BackendService) GenerateNarrative(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.NarrativeRequest](r)
	if err != nil {
		return nil, err
	}

	rep, err := s.sessions.Profile(r.Context(), id)
	if err != nil {
		return nil, domainError(err)
	}
	summary := rep.Summary(profile.DefaultSummaryLimit)

	text, source := summary, api.NarrativeSourceFallback
	if !req.Fallback {
		text, err = s.generator.Generate(r.Context(), summary)
		if err != nil {
			return nil, narrativeError(err)
		}
		source = api.NarrativeSourceModel
	}

	if err := s.sessions.SetNarrative(r.Context(), id, text); err != nil {
		return nil, domainError(err)
	}
	slog.Info("stored narrative", "session_id", id, "source", source)
	return api.NarrativeResponse{Narrative: text, Source: source}, nil
}

// DownloadReport assembles the PDF document and streams it. Absent narrative
// or charts degrade the document rather than failing the export.
func (s *BackendService) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "session_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	opts, err := ParseRequestQueryParams(r, report.DefaultOptions())
	if err != nil {
		WriteError(w, err)
		return
	}

	rep, err := s.sessions.Profile(r.Context(), id)
	if err != nil {
		WriteError(w, domainError(err))
		return
	}

	var arts []charts.Artifact
	if opts.IncludeCharts {
		if ds, ok := s.sessions.Dataset(id); ok {
			arts, err = charts.Render(rep, ds)
			if err != nil {
				slog.Error("error rendering charts for report", "session_id", id, "error", err)
				arts = nil
			}
		}
	}

	narrativeText := ""
	if opts.IncludeNarrative {
		if text, ok, err := s.sessions.Narrative(r.Context(), id); err == nil && ok {
			narrativeText = text
		}
	}

	var buf bytes.Buffer
	if err := report.Build(&buf, rep, arts, narrativeText, opts); err != nil {
		slog.Error("error assembling report", "session_id", id, "error", err)
		WriteError(w, CodedErrorf(http.StatusInternalServerError, "failed to assemble report"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.DatasetName+"-report.pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("error streaming report", "session_id", id, "error", err)
	}
}

// domainError maps pipeline failures onto HTTP statuses. Input-stage errors
// are user-correctable; session errors are lookups.
func domainError(err error) error {
	switch {
	case errors.Is(err, dataset.ErrFormat):
		return CodedError(http.StatusBadRequest, err)
	case errors.Is(err, dataset.ErrEmptyDataset):
		return CodedError(http.StatusUnprocessableEntity, err)
	case errors.Is(err, session.ErrNotFound):
		return CodedError(http.StatusNotFound, err)
	case errors.Is(err, session.ErrNoDataset):
		return CodedError(http.StatusConflict, err)
	default:
		slog.Error("unexpected pipeline error", "error", err)
		return CodedErrorf(http.StatusInternalServerError, "internal error")
	}
}

// narrativeError surfaces provider failures without aborting the session.
func narrativeError(err error) error {
	var authErr *narrative.AuthError
	var quotaErr *narrative.QuotaError
	var transientErr *narrative.TransientError
	switch {
	case errors.As(err, &authErr):
		return CodedError(http.StatusBadGateway, err)
	case errors.As(err, &quotaErr):
		return CodedError(http.StatusBadGateway, err)
	case errors.As(err, &transientErr):
		return CodedError(http.StatusGatewayTimeout, err)
	default:
		return domainError(err)
	}
}
