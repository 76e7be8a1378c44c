package models

import (
	"testing"
)

func TestSuggestionTerms(t *testing.T) {
	tests := []struct {
		name   string
		level1 string
		level2 string
		title  string
		want   []string
	}{
		{
			name:   "all distinct",
			level1: "2024",
			level2: "Mars",
			title:  "Note de frais mars",
			want:   []string{"2024", "Mars", "Note de frais mars"},
		},
		{
			name:   "title equals category collapses",
			level1: "2024",
			level2: "Mars",
			title:  "Mars",
			want:   []string{"2024", "Mars"},
		},
		{
			name:   "empty title dropped",
			level1: "2024",
			level2: "Avril",
			title:  "",
			want:   []string{"2024", "Avril"},
		},
		{
			name: "all empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestionTerms(tt.level1, tt.level2, tt.title)
			if len(got) != len(tt.want) {
				t.Fatalf("SuggestionTerms() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SuggestionTerms()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
