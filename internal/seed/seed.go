// Package seed provides the records a session starts with: the built-in demo
// set or a read-only YAML file.
package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mealtrack/internal/core"
)

var ErrDuplicateID = errors.New("duplicate record id")

// Default returns the demo records in store order.
func Default() []core.Record {
	return []core.Record{
		{ID: 1, Date: core.NewDate(2023, 3, 1), Meal: core.Breakfast, Content: "Eggs Benedict", Calories: 450},
		{ID: 2, Date: core.NewDate(2023, 3, 2), Meal: core.Lunch, Content: "Grilled Chicken Salad", Calories: 350},
		{ID: 3, Date: core.NewDate(2023, 3, 3), Meal: core.Dinner, Content: "Salmon with Quinoa", Calories: 520},
		{ID: 4, Date: core.NewDate(2023, 3, 4), Meal: core.Snack, Content: "Dark Chocolate", Calories: 200},
	}
}

// entry mirrors one YAML list item. Dates are read as plain strings and
// decoded with core.Decode so the file format matches the wire format.
type entry struct {
	ID       int64  `yaml:"id"`
	Date     string `yaml:"date"`
	Meal     string `yaml:"meal"`
	Content  string `yaml:"content"`
	Calories int    `yaml:"calories"`
	Rating   *int   `yaml:"rating"`
	Notes    string `yaml:"notes"`
}

// Load reads a seed file from disk.
func Load(path string) ([]core.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	recs, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return recs, nil
}

// Parse decodes a YAML list of records. Entries without an id are numbered
// after the highest explicit id.
func Parse(b []byte) ([]core.Record, error) {
	var entries []entry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var maxID int64
	for _, e := range entries {
		maxID = max(maxID, e.ID)
	}

	seen := make(map[int64]bool, len(entries))
	out := make([]core.Record, 0, len(entries))
	for i, e := range entries {
		date, err := core.Decode(e.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		meal, err := core.ParseMeal(e.Meal)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w: %q", i+1, err, e.Meal)
		}
		if e.Content == "" {
			return nil, fmt.Errorf("entry %d: content: %w", i+1, core.ErrMissingRequiredField)
		}
		if e.Rating != nil && (*e.Rating < 1 || *e.Rating > 5) {
			return nil, fmt.Errorf("entry %d: %w", i+1, core.ErrInvalidRating)
		}
		id := e.ID
		if id <= 0 {
			maxID++
			id = maxID
		}
		if seen[id] {
			return nil, fmt.Errorf("entry %d: %w: %d", i+1, ErrDuplicateID, id)
		}
		seen[id] = true

		out = append(out, core.Record{
			ID:       id,
			Date:     date,
			Meal:     meal,
			Content:  e.Content,
			Calories: e.Calories,
			Rating:   e.Rating,
			Notes:    e.Notes,
		})
	}
	return out, nil
}
