package processing

import (
	"io"
	"log/slog"
	"time"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
	schedulingports "github.com/Apurer/go-entity-processors/internal/scheduling/ports"
)

// Deps bundles the collaborators handed to domain registration.
type Deps struct {
	Store     entityports.Service
	Scheduler schedulingports.Scheduler
	SideCalls *SideCalls
	Now       func() time.Time
	Logger    *slog.Logger
}

// WithDefaults fills unset optional collaborators.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.SideCalls == nil {
		d.SideCalls = NewSideCalls(d.Logger, retry.DefaultConfig())
	}
	return d
}
