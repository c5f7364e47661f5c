package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"logoforge/internal/domain"
	"logoforge/internal/domain/jsoncfg"
	"logoforge/internal/middleware"
	"logoforge/internal/pipeline"
	"logoforge/internal/synth"
)

// MaxRequestBytes bounds the JSON body, base64 image included.
const MaxRequestBytes = 48 << 20

type taskResponse struct {
	ID        string               `json:"id"`
	Status    pipeline.TaskState   `json:"status"`
	StatusURL string               `json:"status_url,omitempty"`
	Package   *domain.AssetPackage `json:"package,omitempty"`
	Error     *errorDetail         `json:"error,omitempty"`
}

// PackagesCreate generates a complete asset package. With "async": true it
// returns 202 and the package is polled through PackagesGet.
func (a *App) PackagesCreate(w http.ResponseWriter, r *http.Request) {
	var req jsoncfg.PackageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Normalize(middleware.LocaleFromContext(r.Context()))
	if err := req.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	raw, err := req.DecodeImage()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	meta := req.Metadata()
	meta.RequesterCountry = middleware.CountryFromContext(r.Context())
	if raw == nil {
		if raw, err = synth.RenderPNG(meta, synth.DefaultSize); err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to render placeholder logo")
			return
		}
	}
	log := a.logger(r)

	if req.Async {
		task := a.Generator.Start(a.BaseContext, raw, meta, req.Timeout())
		a.Tasks.Add(task)
		go a.persistWhenDone(task)
		log.Info().Str("package_id", task.ID()).Msg("packages: generation started")
		a.json(w, http.StatusAccepted, taskResponse{
			ID:        task.ID(),
			Status:    pipeline.TaskRunning,
			StatusURL: "/v1/packages/" + task.ID(),
		})
		return
	}

	pkg, err := a.Generator.GenerateCompletePackage(r.Context(), raw, meta, req.Timeout())
	if err != nil {
		log.Warn().Err(err).Msg("packages: generation failed")
		status, detail := fatalDetail(err)
		a.error(w, status, detail.Code, detail.Message)
		return
	}
	a.save(r.Context(), pkg)
	a.json(w, http.StatusOK, pkg)
}

// PackagesGet reports a background task or returns a persisted package.
func (a *App) PackagesGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if task, ok := a.Tasks.Get(id); ok {
		pkg, finished, err := task.Result()
		switch {
		case !finished:
			a.json(w, http.StatusAccepted, taskResponse{ID: id, Status: pipeline.TaskRunning})
		case err != nil:
			_, detail := fatalDetail(err)
			a.json(w, http.StatusOK, taskResponse{ID: id, Status: pipeline.TaskFailed, Error: &detail})
		default:
			a.json(w, http.StatusOK, taskResponse{ID: id, Status: pipeline.TaskSucceeded, Package: pkg})
		}
		return
	}
	if a.Packages == nil {
		a.error(w, http.StatusNotFound, "not_found", "package not found")
		return
	}
	pkg, err := a.Packages.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "package not found")
			return
		}
		a.logger(r).Error().Err(err).Str("package_id", id).Msg("packages: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load package")
		return
	}
	a.json(w, http.StatusOK, taskResponse{ID: id, Status: pipeline.TaskSucceeded, Package: pkg})
}

func (a *App) persistWhenDone(task *pipeline.Task) {
	<-task.Done()
	if pkg, _, err := task.Result(); err == nil {
		a.save(a.BaseContext, pkg)
	}
}

func (a *App) save(ctx context.Context, pkg *domain.AssetPackage) {
	if a.Packages == nil || pkg == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.SaveTimeout)
	defer cancel()
	if err := a.Packages.Save(ctx, pkg); err != nil {
		a.Logger.Error().Err(err).Str("package_id", pkg.ID).Msg("packages: save failed")
	}
}

// fatalDetail maps a generation error to an HTTP status and error body.
func fatalDetail(err error) (int, errorDetail) {
	switch {
	case errors.Is(err, domain.ErrMissingAlpha):
		return http.StatusUnprocessableEntity, errorDetail{Code: "missing_alpha", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidSource):
		return http.StatusUnprocessableEntity, errorDetail{Code: "invalid_source", Message: err.Error()}
	case errors.Is(err, domain.ErrEmptyPackage):
		return http.StatusBadGateway, errorDetail{Code: "empty_package", Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorDetail{Code: "canceled", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorDetail{Code: "internal", Message: err.Error()}
	}
}
