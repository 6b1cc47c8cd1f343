// Package backend builds the configured geometry kernel.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/chazu/burl/pkg/config"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/kernel/document"
	"github.com/chazu/burl/pkg/kernel/manifold"
	"github.com/chazu/burl/pkg/kernel/sdfx"
)

// New returns an in-process kernel on top of the modeler named by
// cfg.Backend. The manifold backend is only available in builds with the
// manifold tag.
func New(cfg config.KernelConfig, logger *slog.Logger) (kernel.Kernel, error) {
	var m kernel.Modeler
	switch cfg.Backend {
	case config.BackendSdfx, "":
		m = sdfx.New(sdfx.WithMeshCells(cfg.MeshCells))
	case config.BackendManifold:
		var err error
		if m, err = manifold.New(); err != nil {
			return nil, fmt.Errorf("kernel backend %s: %w", cfg.Backend, err)
		}
	default:
		return nil, fmt.Errorf("unknown kernel backend %q", cfg.Backend)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("kernel ready", "backend", cfg.Backend, "segments", cfg.Segments)
	return document.New(m, document.WithSegments(cfg.Segments), document.WithLogger(logger)), nil
}
