package models

// Deck is the single deck held by one container. Identity is fixed at
// creation; the descriptive fields may be edited afterwards.
type Deck struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	LangFront   string   `json:"lang_front"`
	LangBack    string   `json:"lang_back"`
}
