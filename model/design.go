package model

import (
	"encoding/base64"
	"strings"
	"time"
)

// DesignType is the kind of an uploaded design reference.
type DesignType string

const (
	DesignLogo     DesignType = "logo"
	DesignUXDesign DesignType = "ux_design"
)

// DesignAsset is the typed view of an uploaded logo or UX mockup. The
// orchestrator never mutates it.
type DesignAsset struct {
	ID          string
	Type        DesignType
	Filename    string
	ContentType string
	FileSize    int64
	Data        []byte
	CreatedAt   time.Time
}

// IsImage reports whether the asset has an image/* content type.
func (d DesignAsset) IsImage() bool {
	return strings.HasPrefix(d.ContentType, "image/")
}

// DataURL encodes the asset bytes as a base64 data URL.
func (d DesignAsset) DataURL() string {
	return "data:" + d.ContentType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// DesignSet groups the logos and UX designs selected for one generation.
type DesignSet struct {
	Logos     []DesignAsset
	UXDesigns []DesignAsset
}

// Empty reports whether the set holds no assets.
func (s DesignSet) Empty() bool {
	return len(s.Logos) == 0 && len(s.UXDesigns) == 0
}

// Count returns the total number of assets.
func (s DesignSet) Count() int {
	return len(s.Logos) + len(s.UXDesigns)
}
