// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package engine

const (
	// StrideLengthMeters converts steps to walked distance.
	StrideLengthMeters = 0.762
	// CaloriesPerStep converts steps to burned kcal.
	CaloriesPerStep = 0.045
)

// DistanceMeters returns the distance covered by steps.
func DistanceMeters(steps int64) float64 {
	return float64(steps) * StrideLengthMeters
}

// Calories returns the kcal burned by steps.
func Calories(steps int64) float64 {
	return float64(steps) * CaloriesPerStep
}

// Summary is the step counter update published to collaborators.
type Summary struct {
	SessionID      string  `json:"session_id"`
	Steps          int64   `json:"steps"`
	DistanceMeters float64 `json:"distance"`
	Calories       float64 `json:"calories"`
	DailyGoal      int     `json:"dailyGoal"`
	GoalProgress   float64 `json:"goalProgress"`
	CounterType    string  `json:"counterType"`
}

// NewSummary derives distance, calories and goal progress from steps.
func NewSummary(sessionID string, steps int64, dailyGoal int, counterType string) Summary {
	var progress float64
	if dailyGoal > 0 {
		progress = float64(steps) / float64(dailyGoal)
	}
	return Summary{
		SessionID:      sessionID,
		Steps:          steps,
		DistanceMeters: DistanceMeters(steps),
		Calories:       Calories(steps),
		DailyGoal:      dailyGoal,
		GoalProgress:   progress,
		CounterType:    counterType,
	}
}
