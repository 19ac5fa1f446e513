// Package api defines the supervisor's RPC surface as a fixed dispatch
// table, built once at startup and bound by whatever transport the embedder
// chooses. Every method returns a result or an error, never both.
package api

import (
	"context"
	"errors"

	"github.com/farmkeep/farmkeep/internal/supervisor"
)

// Params carries the arguments of one method call.
type Params struct {
	// Path is a share config path (start) or snapshot path (save/load).
	Path string `json:"path,omitempty"`
	// ID is a share id; restart accepts the "*" wildcard.
	ID string `json:"id,omitempty"`
}

// Handler executes one method.
type Handler func(ctx context.Context, p Params) (any, error)

// Method is one named operation of the RPC surface.
type Method struct {
	Name        string
	Description string
	Handler     Handler
}

// StartResult is returned by the start and load methods.
type StartResult struct {
	ID string `json:"id,omitempty"`
}

// Methods builds the operation table for the given supervisor.
// defaultSnapshot is used by save/load when the call carries no path.
func Methods(sup *supervisor.Supervisor, defaultSnapshot string) map[string]Method {
	snapPath := func(p Params) string {
		if p.Path != "" {
			return p.Path
		}
		return defaultSnapshot
	}
	table := []Method{
		{
			Name:        "start",
			Description: "validate a share config and launch its worker",
			Handler: func(ctx context.Context, p Params) (any, error) {
				if p.Path == "" {
					return nil, errors.New("start requires a config path")
				}
				id, err := sup.Start(ctx, p.Path)
				if err != nil {
					return nil, err
				}
				return StartResult{ID: id}, nil
			},
		},
		{
			Name:        "restart",
			Description: "stop a share and relaunch it from its config path ('*' for all)",
			Handler: func(ctx context.Context, p Params) (any, error) {
				if p.ID == "" {
					return nil, errors.New("restart requires a share id")
				}
				return nil, sup.Restart(ctx, p.ID)
			},
		},
		{
			Name:        "stop",
			Description: "send the graceful interrupt to a share's worker",
			Handler: func(ctx context.Context, p Params) (any, error) {
				if p.ID == "" {
					return nil, errors.New("stop requires a share id")
				}
				return nil, sup.Stop(p.ID)
			},
		},
		{
			Name:        "destroy",
			Description: "signal a share's worker and remove it from the registry",
			Handler: func(ctx context.Context, p Params) (any, error) {
				if p.ID == "" {
					return nil, errors.New("destroy requires a share id")
				}
				return nil, sup.Destroy(ctx, p.ID)
			},
		},
		{
			Name:        "status",
			Description: "list every registered share with its live state",
			Handler: func(ctx context.Context, p Params) (any, error) {
				return sup.Status(), nil
			},
		},
		{
			Name:        "killall",
			Description: "destroy every share and terminate the supervisor",
			Handler: func(ctx context.Context, p Params) (any, error) {
				return nil, sup.Killall(ctx)
			},
		},
		{
			Name:        "save",
			Description: "persist the registry's {id, path} pairs to a snapshot",
			Handler: func(ctx context.Context, p Params) (any, error) {
				return nil, sup.SaveSnapshot(snapPath(p))
			},
		},
		{
			Name:        "load",
			Description: "relaunch every share recorded in a snapshot",
			Handler: func(ctx context.Context, p Params) (any, error) {
				return nil, sup.LoadSnapshot(ctx, snapPath(p))
			},
		},
	}
	out := make(map[string]Method, len(table))
	for _, m := range table {
		out[m.Name] = m
	}
	return out
}
