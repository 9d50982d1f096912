package rules

import (
	"time"

	"github.com/solacehub/solace-sense/internal/telemetry"
	"github.com/solacehub/solace-sense/internal/window"
)

// The four shipped personas.
const (
	PersonaAurora = "aurora" // gentle caregiver
	PersonaEmber  = "ember"  // energetic coach
	PersonaWillow = "willow" // calm, mindfulness-oriented
	PersonaIris   = "iris"   // playful night owl
)

// DefaultPersona is active until a switch is requested.
const DefaultPersona = PersonaAurora

// builtinTables are the shipped rule tables, one ordered list per persona.
// A rules YAML document replaces these wholesale.
func builtinTables() map[string][]Rule {
	return map[string][]Rule{
		PersonaAurora: {
			{Metric: telemetry.KindHeartRate, Comparator: Above, Threshold: 120, Action: ActionConcernedCare, Cooldown: 10 * time.Minute},
			{Metric: telemetry.KindHeartRate, Stat: window.StatVariance10, Comparator: Above, Threshold: 80, Action: ActionCheckIn, Cooldown: 30 * time.Minute},
			{Metric: telemetry.KindSleep, Comparator: Below, Threshold: 6, Action: ActionRestReminder, Cooldown: 12 * time.Hour},
			{Metric: telemetry.KindMoodStress, Comparator: Above, Threshold: 75, Action: ActionCalmPresence, Cooldown: time.Hour},
		},
		PersonaEmber: {
			{Metric: telemetry.KindSteps, Comparator: Below, Threshold: 2000, Action: ActionMotivation, Cooldown: time.Hour},
			{Metric: telemetry.KindSteps, Comparator: Above, Threshold: 10000, Action: ActionCelebrate, Cooldown: 12 * time.Hour},
			{Metric: telemetry.KindMotion, Stat: window.StatMagnitude, Comparator: Above, Threshold: 25, Action: ActionGentleAlert, Cooldown: 5 * time.Minute},
			{Metric: telemetry.KindHeartRate, Stat: window.StatRate, Comparator: Above, Threshold: 10, Action: ActionCheckIn, Cooldown: 20 * time.Minute},
			{Metric: telemetry.KindMoodEnergy, Comparator: Below, Threshold: 30, Action: ActionEnergize, Cooldown: 2 * time.Hour},
		},
		PersonaWillow: {
			{Metric: telemetry.KindMoodStress, Comparator: Above, Threshold: 60, Action: ActionCalmPresence, Cooldown: 45 * time.Minute},
			{Metric: telemetry.KindBiometrics, Comparator: Above, Threshold: 70, Action: ActionRestReminder, Cooldown: time.Hour},
			{Metric: telemetry.KindSteps, Stat: window.StatRegularity7, Comparator: Above, Threshold: 0.85, Action: ActionCelebrate, Cooldown: 24 * time.Hour},
			{Metric: telemetry.KindOrientation, Comparator: Above, Threshold: 150, Action: ActionWindDown, Cooldown: 2 * time.Hour},
		},
		PersonaIris: {
			{Metric: telemetry.KindLight, Comparator: Below, Threshold: 5, Action: ActionWindDown, Cooldown: 3 * time.Hour},
			{Metric: telemetry.KindProximity, Comparator: Below, Threshold: 2, Action: ActionProximityGreet, Cooldown: 30 * time.Minute},
			{Metric: telemetry.KindMoodHappiness, Comparator: Above, Threshold: 80, Action: ActionCelebrate, Cooldown: 6 * time.Hour},
			{Metric: telemetry.KindBattery, Comparator: Below, Threshold: 15, Action: ActionGentleAlert, Cooldown: 4 * time.Hour},
		},
	}
}
