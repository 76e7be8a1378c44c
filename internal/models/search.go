package models

// SuggestHit is one flattened autocomplete result served by the suggest
// endpoint: the record id plus the category context the UI renders next
// to the suggestion text.
type SuggestHit struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
}
