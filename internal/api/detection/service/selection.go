package detectionService

import (
	"slices"

	"FaceCrop/internal/api/detection"
	"FaceCrop/internal/entity"
)

// selectFaces applies the selection policy. Single-face modes keep the first candidate on ties;
// the multi-face mode keeps detector order among equal confidences.
func selectFaces(candidates []entity.Candidate, mode detection.Mode) []entity.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	switch mode {
	case detection.ModeHighestConfidence:
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		return []entity.Candidate{best}

	case detection.ModeAllByConfidence:
		sorted := slices.Clone(candidates)
		slices.SortStableFunc(sorted, func(a, b entity.Candidate) int {
			switch {
			case a.Confidence > b.Confidence:
				return -1
			case a.Confidence < b.Confidence:
				return 1
			}
			return 0
		})
		return sorted

	default:
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Box.Area() > best.Box.Area() {
				best = c
			}
		}
		return []entity.Candidate{best}
	}
}
