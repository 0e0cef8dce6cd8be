package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vatavaran/vatavaran-backend/api/responses"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and reports 503 when any
// of them fails.
func HealthReady(deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			status = make(map[string]string, len(names))
			failed []string
		)
		var g errgroup.Group
		for _, name := range names {
			name, dep := name, deps[name]
			g.Go(func() error {
				result := "ok"
				if dep == nil {
					result = "not configured"
				} else if err := dep.Ping(ctx); err != nil {
					result = "unavailable"
				}
				mu.Lock()
				status[name] = result
				if result != "ok" {
					failed = append(failed, name)
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if len(failed) > 0 {
			sort.Strings(failed)
			err := pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("dependencies unavailable: %v", failed)).
				WithDetails(status)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
