package pacing

import "math"

// PacingPlan describes how silence is added to synthesized speech to reach a
// target duration.
//
// Invariants:
//
//	sum(Allocations) + TrailingSilence == TotalSilence
//	SpeechDuration + TotalSilence == max(TargetDuration, SpeechDuration)
type PacingPlan struct {
	// TargetDuration is the requested clip length in seconds.
	TargetDuration float64 `json:"target_duration"`
	// SpeechDuration is the true end of speech in seconds.
	SpeechDuration float64 `json:"speech_duration"`
	// TotalSilence is the silence required to reach TargetDuration.
	TotalSilence float64 `json:"total_silence"`
	// Allocations holds the silence inserted after each interior splice point.
	Allocations []float64 `json:"allocations"`
	// TrailingSilence is the silence placed after the last speech sample.
	TrailingSilence float64 `json:"trailing_silence"`
}

// InteriorSilence returns the sum of all interior allocations.
func (p PacingPlan) InteriorSilence() float64 {
	var sum float64
	for _, a := range p.Allocations {
		sum += a
	}
	return sum
}

// PlanSentenceSilence computes the silence plan for speech that ends at
// speechEnd seconds and has splicePoints sentence boundaries.
//
// endReserve seconds are kept for the end of the clip (capped at the total).
// The remainder is split evenly over the first splicePoints-1 boundaries; the
// last boundary is the end of the clip and is covered by the reserve. With
// fewer than two boundaries there is no interior slot and all silence trails.
func PlanSentenceSilence(speechEnd, target float64, splicePoints int, endReserve float64) PacingPlan {
	if speechEnd < 0 || math.IsNaN(speechEnd) {
		speechEnd = 0
	}
	plan := PacingPlan{
		TargetDuration: target,
		SpeechDuration: speechEnd,
		TotalSilence:   math.Max(0, target-speechEnd),
	}
	if plan.TotalSilence == 0 {
		return plan
	}

	reserve := math.Min(math.Max(0, endReserve), plan.TotalSilence)
	interior := splicePoints - 1
	if interior <= 0 {
		plan.TrailingSilence = plan.TotalSilence
		return plan
	}

	perGap := (plan.TotalSilence - reserve) / float64(interior)
	plan.Allocations = make([]float64, interior)
	for i := range plan.Allocations {
		plan.Allocations[i] = perGap
	}
	plan.TrailingSilence = reserve
	return plan
}
