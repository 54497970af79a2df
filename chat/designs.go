package chat

import (
	"context"

	"pixie/model"
)

const (
	designCandidates = 5
	designsPerType   = 3
	maxDesignBytes   = 2 * 1024 * 1024
)

// DesignSource lists uploaded design assets of one type, newest first.
type DesignSource interface {
	ListByType(ctx context.Context, t model.DesignType) ([]model.DesignAsset, error)
}

// SelectDesigns picks the visual references for a UI generation: of the five
// newest assets per type, the first three that are images under 2MB. A
// lookup failure yields an empty set.
func (c *LlmChat) SelectDesigns(ctx context.Context) model.DesignSet {
	if c.designs == nil {
		return model.DesignSet{}
	}

	var set model.DesignSet
	for _, t := range []model.DesignType{model.DesignLogo, model.DesignUXDesign} {
		assets, err := c.designs.ListByType(ctx, t)
		if err != nil {
			c.log.Warn("Failed to fetch designs for LLM", "type", t, "error", err)
			return model.DesignSet{}
		}
		picked := filterDesigns(assets)
		switch t {
		case model.DesignLogo:
			set.Logos = picked
		case model.DesignUXDesign:
			set.UXDesigns = picked
		}
	}
	return set
}

func filterDesigns(assets []model.DesignAsset) []model.DesignAsset {
	if len(assets) > designCandidates {
		assets = assets[:designCandidates]
	}

	var picked []model.DesignAsset
	for _, a := range assets {
		if len(picked) == designsPerType {
			break
		}
		if a.FileSize < maxDesignBytes && a.IsImage() {
			picked = append(picked, a)
		}
	}
	return picked
}
