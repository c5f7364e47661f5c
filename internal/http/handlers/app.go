package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"logoforge/internal/domain"
	"logoforge/internal/pipeline"
)

// PackageGenerator runs the package pipeline synchronously or in the
// background.
type PackageGenerator interface {
	GenerateCompletePackage(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) (*domain.AssetPackage, error)
	Start(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) *pipeline.Task
}

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Generator PackageGenerator
	Tasks     *pipeline.Registry
	// Packages is optional; without it finished packages live only in Tasks.
	Packages domain.PackageRepository
	Logger   zerolog.Logger
	// BaseContext parents background tasks so they outlive the request.
	BaseContext context.Context
	// SaveTimeout bounds persisting a finished package.
	SaveTimeout time.Duration
	// Ready is an optional dependency probe used by Health.
	Ready func(ctx context.Context) error
}

// NewApp constructs an App with an in-memory task registry.
func NewApp(gen PackageGenerator, packages domain.PackageRepository, logger zerolog.Logger) *App {
	return &App{
		Generator:   gen,
		Tasks:       pipeline.NewRegistry(time.Hour),
		Packages:    packages,
		Logger:      logger,
		BaseContext: context.Background(),
		SaveTimeout: 10 * time.Second,
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
