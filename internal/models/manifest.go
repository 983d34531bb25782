package models

import "time"

// Manifest is the JSON header of a .mflash container. It is derived from
// the packaged store on every export and cross-checked, never trusted,
// on import. Optional fields are preserved but never required.
type Manifest struct {
	Format         string    `json:"format" validate:"required,eq=morflash.mflash"`
	Version        int       `json:"version" validate:"required,eq=1"`
	DeckID         int64     `json:"deck_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	LangFront      string    `json:"lang_front,omitempty"`
	LangBack       string    `json:"lang_back,omitempty"`
	CardCount      int       `json:"card_count" validate:"min=0"`
	CreatedAtUTC   time.Time `json:"created_at_utc"`
	UpdatedAtUTC   time.Time `json:"updated_at_utc"`
	HasThumbnail   bool      `json:"has_thumbnail,omitempty"`
	HasDeckMedia   bool      `json:"has_deck_media,omitempty"`
	MinCoreVersion string    `json:"min_core_version,omitempty"`
	Generator      string    `json:"generator,omitempty"`
}
