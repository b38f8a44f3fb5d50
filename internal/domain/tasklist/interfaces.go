package tasklist

import (
	"context"

	"github.com/rpggio/evtrack/internal/domain/schedule"
)

// Repository provides persistence for task list definitions.
type Repository interface {
	Create(ctx context.Context, info *Info) error
	Get(ctx context.Context, id string) (*Info, error)
	GetByName(ctx context.Context, name string) (*Info, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, id string) error
	SaveNodes(ctx context.Context, id string, nodes []NodeRecord) error
	LoadNodes(ctx context.Context, id string) ([]NodeRecord, error)
	SavePeriods(ctx context.Context, id string, periods []schedule.Spec) error
	LoadPeriods(ctx context.Context, id string) ([]schedule.Spec, error)
	SetRollupChildren(ctx context.Context, id string, children []string) error
	GetRollupChildren(ctx context.Context, id string) ([]string, error)
}
