package wizard

import "fmt"

// transitionTable returns the allowed moves of a linear wizard with total
// steps: forward to the next step and back to the previous one.
func transitionTable(total int) map[int][]int {
	t := make(map[int][]int, total)
	for s := 1; s <= total; s++ {
		var allowed []int
		if s > 1 {
			allowed = append(allowed, s-1)
		}
		if s < total {
			allowed = append(allowed, s+1)
		}
		t[s] = allowed
	}
	return t
}

// validateTransition checks whether moving from current to target is
// allowed according to the given transition table.
func validateTransition(table map[int][]int, current, target int) error {
	allowed, ok := table[current]
	if !ok {
		return fmt.Errorf("unknown current step: %d", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("transition from step %d to step %d is not allowed", current, target)
}
