package metrics

import (
	"fmt"
	"strings"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
)

const (
	levelWarning = "warning"
	levelError   = "error"
)

// Thresholds are the biological-plausibility bounds used by Evaluate.
type Thresholds struct {
	RateWarn        float64 `yaml:"rate_warn" json:"rate_warn"`
	RateError       float64 `yaml:"rate_error" json:"rate_error"`
	AttackWarn      float64 `yaml:"attack_warn" json:"attack_warn"`
	AttackError     float64 `yaml:"attack_error" json:"attack_error"`
	ConversionWarn  float64 `yaml:"conversion_warn" json:"conversion_warn"`
	ConversionError float64 `yaml:"conversion_error" json:"conversion_error"`
	CapacityWarn    float64 `yaml:"capacity_warn" json:"capacity_warn"`
	CompetitionWarn float64 `yaml:"competition_warn" json:"competition_warn"`
	AttoPopulation  float64 `yaml:"atto_population" json:"atto_population"`
	NearExtinction  float64 `yaml:"near_extinction" json:"near_extinction"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RateWarn:        2.0,
		RateError:       10.0,
		AttackWarn:      0.1,
		AttackError:     1.0,
		ConversionWarn:  0.2,
		ConversionError: 0.5,
		CapacityWarn:    10.0,
		CompetitionWarn: 2.0,
		AttoPopulation:  1.0,
		NearExtinction:  1e-6,
	}
}

// Warnings are advisory only; the engine keeps running regardless.
type Warnings struct {
	NearExtinction bool     `json:"near_extinction"`
	AttoFoxProblem bool     `json:"atto_fox_problem"`
	Messages       []string `json:"unrealistic_parameter_messages"`
}

func (w Warnings) Clone() Warnings {
	if w.Messages != nil {
		w.Messages = append([]string(nil), w.Messages...)
	}
	return w
}

// HasErrors reports whether any message is error-class.
func (w Warnings) HasErrors() bool {
	for _, m := range w.Messages {
		if strings.HasPrefix(m, levelError+":") {
			return true
		}
	}
	return false
}

func (w Warnings) Any() bool {
	return w.NearExtinction || w.AttoFoxProblem || len(w.Messages) > 0
}

// Evaluate derives warnings from the current state and parameters only.
func (th Thresholds) Evaluate(p ecology.Params, x dynamo.State) Warnings {
	w := th.Populations(x)
	w.Messages = th.ParameterMessages(p)
	return w
}

// Populations sets the population-level flags for x.
func (th Thresholds) Populations(x dynamo.State) Warnings {
	return Warnings{
		NearExtinction: x.N1 <= th.NearExtinction || x.N2 <= th.NearExtinction,
		AttoFoxProblem: x.N1 < th.AttoPopulation || x.N2 < th.AttoPopulation,
	}
}

func (th Thresholds) ParameterMessages(p ecology.Params) []string {
	var msgs []string
	add := func(level, format string, args ...any) {
		msgs = append(msgs, level+": "+fmt.Sprintf(format, args...))
	}

	rate := func(name, what string, v float64) {
		switch {
		case v <= 0:
			add(levelError, "%s = %g: %s must be positive", name, v, what)
		case v > th.RateError:
			add(levelError, "%s = %g: %s above %g is biologically implausible", name, v, what, th.RateError)
		case v > th.RateWarn:
			add(levelWarning, "%s = %g: %s above %g is unusually high", name, v, what, th.RateWarn)
		}
	}

	switch m := p.(type) {
	case *ecology.Competition:
		rate("r1", "growth rate", m.R1)
		rate("r2", "growth rate", m.R2)
		for _, k := range []struct {
			name string
			v    float64
		}{{"K1", m.K1}, {"K2", m.K2}} {
			switch {
			case k.v <= 0:
				add(levelError, "%s = %g: carrying capacity must be positive", k.name, k.v)
			case k.v < th.CapacityWarn:
				add(levelWarning, "%s = %g: carrying capacity below %g individuals", k.name, k.v, th.CapacityWarn)
			}
		}
		for _, a := range []struct {
			name string
			v    float64
		}{{"a12", m.A12}, {"a21", m.A21}} {
			switch {
			case a.v < 0:
				add(levelError, "%s = %g: competition coefficient cannot be negative", a.name, a.v)
			case a.v > th.CompetitionWarn:
				add(levelWarning, "%s = %g: competition coefficient above %g", a.name, a.v, th.CompetitionWarn)
			}
		}
	case *ecology.PredatorPrey:
		rate("r1", "prey growth rate", m.R1)
		rate("r2", "predator death rate", m.R2)
		switch {
		case m.A <= 0:
			add(levelError, "a = %g: attack rate must be positive", m.A)
		case m.A > th.AttackError:
			add(levelError, "a = %g: attack rate above %g", m.A, th.AttackError)
		case m.A > th.AttackWarn:
			add(levelWarning, "a = %g: attack rate above %g", m.A, th.AttackWarn)
		}
		switch {
		case m.B <= 0:
			add(levelError, "b = %g: conversion efficiency must be positive", m.B)
		case m.B > th.ConversionError:
			add(levelError, "b = %g: conversion efficiency above %g", m.B, th.ConversionError)
		case m.B > th.ConversionWarn:
			add(levelWarning, "b = %g: conversion efficiency above %g", m.B, th.ConversionWarn)
		}
	}

	initial := p.Initial()
	if initial.N1 <= 0 {
		add(levelError, "N1_0 = %g: initial population must be positive", initial.N1)
	}
	if initial.N2 <= 0 {
		add(levelError, "N2_0 = %g: initial population must be positive", initial.N2)
	}
	return msgs
}
