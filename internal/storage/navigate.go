package storage

import (
	"fmt"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// applyNavigation computes the result of a move over a stored session.
func applyNavigation(current int, instructions []string, nav domain.Navigation) (*domain.NavigationResult, error) {
	total := len(instructions)
	if total == 0 {
		return nil, domain.ErrNoInstructions
	}
	if nav.Direction == domain.DirJump && (nav.Step < 0 || nav.Step >= total) {
		return nil, fmt.Errorf("jump to %d of %d: %w", nav.Step, total, domain.ErrInvalidStep)
	}
	next := nav.Target(current, total)
	return &domain.NavigationResult{
		NewStep:     next,
		TotalSteps:  total,
		IsComplete:  next == total-1,
		Instruction: instructions[next],
	}, nil
}
