package model

import (
	"fmt"

	"groundwater-lab/internal/domain"
)

// All returns one instance of every model family with default parameters.
func All() []Model {
	return []Model{
		NewARIMA(),
		NewHoltWinters(),
		NewSequence(),
	}
}

// ByNames builds the model set for the given names; empty means all.
// Returns an error for an unknown name, detected before any well is
// processed.
func ByNames(names []string) ([]Model, error) {
	if len(names) == 0 {
		return All(), nil
	}

	models := make([]Model, 0, len(names))
	for _, name := range names {
		switch name {
		case domain.ModelARIMA:
			models = append(models, NewARIMA())
		case domain.ModelHoltWinters:
			models = append(models, NewHoltWinters())
		case domain.ModelSequence:
			models = append(models, NewSequence())
		default:
			return nil, fmt.Errorf("unknown model name: %s", name)
		}
	}
	return models, nil
}
