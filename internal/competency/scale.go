package competency

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

const (
	defaultScaleName        = "Competency scale: %s"
	defaultScaleDescription = "Scale created by competency framework import."
)

var scaleIDPath = jp.MustParseString("$[0].scaleid")

// ScaleResolver finds or creates global scales by their compact values.
type ScaleResolver struct {
	store ScaleStore

	// NameTemplate formats the name of a created scale from its owner's
	// shortname.
	NameTemplate string
	Description  string

	created int
	reused  int
}

// NewScaleResolver returns a resolver backed by store.
func NewScaleResolver(store ScaleStore) *ScaleResolver {
	return &ScaleResolver{
		store:        store,
		NameTemplate: defaultScaleName,
		Description:  defaultScaleDescription,
	}
}

// Resolve returns the id of the global scale whose compact values equal
// values exactly, creating one named after owner when none matches. The new
// scale is attributed to the actor in ctx.
func (r *ScaleResolver) Resolve(ctx context.Context, values, owner string) (int64, error) {
	scales, err := r.store.ListScales(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scales: %w", err)
	}
	for _, s := range scales {
		if s.Compact() == values {
			r.reused++
			return s.ID, nil
		}
	}

	id, err := r.store.CreateScale(ctx, Scale{
		CourseID:    0,
		UserID:      ActorFromContext(ctx),
		Name:        fmt.Sprintf(r.NameTemplate, owner),
		Values:      values,
		Description: r.Description,
	})
	if err != nil {
		return 0, fmt.Errorf("create scale for %q: %w", owner, err)
	}
	r.created++
	return id, nil
}

// Counts returns how many scales Resolve created and reused.
func (r *ScaleResolver) Counts() (created, reused int) {
	return r.created, r.reused
}

// RewriteScaleConfig points the first element of a scale configuration array
// at scaleID and re-serializes it.
func RewriteScaleConfig(scaleID int64, config string) (string, error) {
	data, err := oj.ParseString(config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedScaleConfig, err)
	}
	list, ok := data.([]any)
	if !ok || len(list) == 0 {
		return "", fmt.Errorf("%w: expected a non-empty JSON array", ErrMalformedScaleConfig)
	}
	if _, ok := list[0].(map[string]any); !ok {
		return "", fmt.Errorf("%w: first element is not an object", ErrMalformedScaleConfig)
	}
	if err := scaleIDPath.Set(data, scaleID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedScaleConfig, err)
	}

	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedScaleConfig, err)
	}
	return string(out), nil
}
