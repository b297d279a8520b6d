package detect

import "github.com/Yanis750/pymovements/internal/gaze"

// A Candidate is an ordered list of sample indices making up one
// provisional event. Indices stay sorted but may become
// non-contiguous after missing samples are stripped.
type Candidate []int

// SplitPolicy decides how candidates containing missing-sample gaps
// are turned into final candidates. The built-in policies are
// SplitAtGaps (one candidate per contiguous run) and KeepGaps (span
// the gaps).
type SplitPolicy func(candidates []Candidate, positions []gaze.Point) []Candidate

// StripMissing removes indices whose sample is missing from every
// candidate, preserving relative order. Candidates may come back
// empty; the caller's duration filter discards them.
func StripMissing(candidates []Candidate, positions []gaze.Point) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		kept := make(Candidate, 0, len(candidate))
		for _, idx := range candidate {
			if positions[idx].IsMissing() {
				continue
			}
			kept = append(kept, idx)
		}
		out = append(out, kept)
	}
	return out
}

// SplitAtGaps splits every candidate into contiguous index runs. A
// gap between consecutive indices marks where missing samples were
// stripped, so each run becomes an independent candidate.
func SplitAtGaps(candidates []Candidate, _ []gaze.Point) []Candidate {
	var out []Candidate
	for _, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		runStart := 0
		for i := 1; i < len(candidate); i++ {
			if candidate[i] != candidate[i-1]+1 {
				out = append(out, candidate[runStart:i])
				runStart = i
			}
		}
		out = append(out, candidate[runStart:])
	}
	return out
}

// KeepGaps passes candidates through unchanged, letting a single
// event span missing-sample gaps.
func KeepGaps(candidates []Candidate, _ []gaze.Point) []Candidate {
	return candidates
}

// hasMissing reports whether any sample in points is missing.
func hasMissing(points []gaze.Point) bool {
	for _, p := range points {
		if p.IsMissing() {
			return true
		}
	}
	return false
}
