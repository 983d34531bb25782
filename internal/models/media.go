package models

// MediaKind classifies a media file.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaOther MediaKind = "other"
)

// MediaBinding says what a media row is attached to: exactly one of a
// single card or the whole deck. The zero value is neither and is
// rejected by the store, so the illegal "both" state cannot be built at
// all and "neither" cannot be persisted.
type MediaBinding struct {
	cardID   int64
	deckWide bool
}

// BindCard returns a binding to a single card.
func BindCard(cardID int64) MediaBinding {
	return MediaBinding{cardID: cardID}
}

// BindDeckWide returns a deck-wide binding.
func BindDeckWide() MediaBinding {
	return MediaBinding{deckWide: true}
}

// CardID reports the bound card, if any.
func (b MediaBinding) CardID() (int64, bool) {
	if b.deckWide || b.cardID == 0 {
		return 0, false
	}
	return b.cardID, true
}

// DeckWide reports whether the binding is deck-wide.
func (b MediaBinding) DeckWide() bool {
	return b.deckWide
}

// Valid reports whether the binding is card-bound or deck-wide.
func (b MediaBinding) Valid() bool {
	return b.deckWide || b.cardID != 0
}

// Media is a reference to one media file packaged in a container. The
// file content itself lives in the archive under media/<FileName>; the
// row only records metadata and the binding.
type Media struct {
	ID       int64     `json:"id"`
	FileName string    `json:"file_name"`
	Kind     MediaKind `json:"kind"`
	MimeType string    `json:"mime_type"`
	Binding  MediaBinding
	AltText  string `json:"alt_text"`
	Caption  string `json:"caption"`
}
