package store

import (
	"testing"

	"github.com/studyhive/backend/models"
)

func TestFilterContent(t *testing.T) {
	items := []models.Content{
		{Title: "Laplace Transforms", Subject: "Mathematics III"},
		{Title: "Thermodynamics PYQ 2023", Subject: "Physics"},
		{Title: "Sorting Algorithms", Subject: "Data Structures"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query returns everything",
			query: "",
			want:  []string{"Laplace Transforms", "Thermodynamics PYQ 2023", "Sorting Algorithms"},
		},
		{
			name:  "whitespace-only query returns everything",
			query: "   ",
			want:  []string{"Laplace Transforms", "Thermodynamics PYQ 2023", "Sorting Algorithms"},
		},
		{
			name:  "title substring, case-insensitive",
			query: "LAPLACE",
			want:  []string{"Laplace Transforms"},
		},
		{
			name:  "subject substring, case-insensitive",
			query: "physics",
			want:  []string{"Thermodynamics PYQ 2023"},
		},
		{
			name:  "mixed-case query with surrounding whitespace",
			query: "  MathEmatics  ",
			want:  []string{"Laplace Transforms"},
		},
		{
			name:  "substring matching multiple items",
			query: "s",
			want:  []string{"Laplace Transforms", "Thermodynamics PYQ 2023", "Sorting Algorithms"},
		},
		{
			name:  "no match",
			query: "chemistry",
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterContent(items, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("filterContent(%q) returned %d items, want %d", tt.query, len(got), len(tt.want))
			}
			for i, c := range got {
				if c.Title != tt.want[i] {
					t.Fatalf("result %d = %q, want %q", i, c.Title, tt.want[i])
				}
			}
		})
	}
}
