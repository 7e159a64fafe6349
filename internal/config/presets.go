package config

import (
	"sort"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
)

type Preset struct {
	Description string
	Params      ecology.Params
}

var Presets = map[dynamo.ModelKind]map[string]Preset{
	dynamo.Competition: {
		"coexistence": {
			Description: "weak interspecific competition, stable coexistence",
			Params:      ecology.NewCompetition(1.0, 0.8, 120, 100, 0.4, 0.5, 50, 40),
		},
		"exclusion": {
			Description: "species 1 outcompetes species 2",
			Params:      ecology.NewCompetition(1.0, 0.8, 120, 100, 0.3, 1.5, 50, 40),
		},
		"bistable": {
			Description: "strong mutual competition, winner depends on the start",
			Params:      ecology.NewCompetition(1.0, 1.0, 100, 100, 1.5, 1.5, 55, 45),
		},
	},
	dynamo.PredatorPrey: {
		"textbook": {
			Description: "classic neutral cycles",
			Params:      ecology.NewPredatorPrey(1.0, 1.0, 0.1, 0.075, 40, 9),
		},
		"gentle": {
			Description: "small orbit close to equilibrium",
			Params:      ecology.NewPredatorPrey(1.0, 1.0, 0.1, 0.075, 15, 11),
		},
		"attofox": {
			Description: "deep orbit where predators fall below one individual",
			Params:      ecology.NewPredatorPrey(1.0, 1.0, 0.1, 0.075, 200, 2),
		},
	},
}

// GetPreset returns a copy of the named preset's parameters, or nil.
func GetPreset(kind dynamo.ModelKind, name string) ecology.Params {
	modelPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	p, ok := modelPresets[name]
	if !ok {
		return nil
	}
	return p.Params.Clone()
}

func ListPresets(kind dynamo.ModelKind) []string {
	modelPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
