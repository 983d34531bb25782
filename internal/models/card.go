package models

// Card is one flashcard owned by a deck. SortOrder defines display
// sequence; ties are broken by ID. Extra carries an opaque JSON payload
// for forward-compatible extensions and is round-tripped untouched.
type Card struct {
	ID         int64  `json:"id"`
	DeckID     int64  `json:"deck_id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
	Notes      string `json:"notes"`
	Hyperlink  string `json:"hyperlink"`
	SortOrder  int    `json:"sort_order"`
	Extra      string `json:"extra,omitempty"`
}
