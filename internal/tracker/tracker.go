// Package tracker adapts the execution loop runner (C9) to the external
// feature/issue tracker CLI (`bd`, spec.md §4.10/§6). Every call shells out
// with a short timeout, captures text output, and classifies failures into
// perr.SubprocessError so the loop runner can treat "not installed" as a
// distinguished success-of-sorts (tracker unavailable, degrade gracefully)
// rather than a hard error.
package tracker

import (
	"context"

	"github.com/forgewright/planloom/internal/model"
)

// Tracker is the uniform synchronous interface spec.md §4.10 names.
type Tracker interface {
	DiscoverPlans(ctx context.Context) ([]model.PlanInfo, error)
	GetNextFeature(ctx context.Context) (*model.FeatureInfo, error)
	GetCurrentFeature(ctx context.Context) (*model.FeatureInfo, error)
	GetAllFeatures(ctx context.Context) ([]model.FeatureInfo, error)
	UpdateFeatureStatus(ctx context.Context, name string, status model.FeatureStatus) error
	Sync(ctx context.Context) error
}
