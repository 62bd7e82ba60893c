// Package progression maps accumulated experience to a player level.
//
// Level n needs n*100 experience to advance to n+1, so the thresholds are
// 100, 200, 300, ... Level 10 is the cap and carries no experience.
package progression

import (
	"fmt"

	"github.com/playperu/questboard/internal/questboard"
)

// Policy decides what happens when a negative delta pushes experience
// below zero.
type Policy int

const (
	// FloorAtZero keeps the level and floors experience at 0.
	FloorAtZero Policy = iota
	// LevelDown walks back through lower levels before flooring.
	LevelDown
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "floor":
		return FloorAtZero, nil
	case "symmetric":
		return LevelDown, nil
	}
	return 0, fmt.Errorf("unknown progression policy %q", s)
}

func (p Policy) String() string {
	if p == LevelDown {
		return "symmetric"
	}
	return "floor"
}

// Threshold is the experience needed at level to advance.
func Threshold(level int) int { return level * 100 }

// Apply adds delta to experience and returns the resulting level and
// experience under policy p. Out-of-range inputs are normalised, so
// Apply(level, exp, 0) also repairs inconsistent stored values.
func (p Policy) Apply(level, experience, delta int) (int, int) {
	level = min(max(level, questboard.MinLevel), questboard.MaxLevel)
	exp := experience + delta

	if p == LevelDown {
		for exp < 0 && level > questboard.MinLevel {
			level--
			exp += Threshold(level)
		}
	}
	if exp < 0 {
		exp = 0
	}

	for level < questboard.MaxLevel && exp >= Threshold(level) {
		exp -= Threshold(level)
		level++
	}

	if level >= questboard.MaxLevel {
		return questboard.MaxLevel, 0
	}
	return level, exp
}

// Apply uses the FloorAtZero policy.
func Apply(level, experience, delta int) (int, int) {
	return FloorAtZero.Apply(level, experience, delta)
}
