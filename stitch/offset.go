package stitch

import (
	"image"

	"go.viam.com/scrollstitch/vision/ann"
)

const (
	// maxDescriptorDistance is the largest Euclidean distance at which two descriptors match.
	maxDescriptorDistance = 0.1
	// minVoteRatio is the share of the new frame's keypoints the winning displacement needs.
	minVoteRatio = 0.1
	// minVoteMargin is how many times the runner-up count the winning displacement needs.
	minVoteMargin = 2
)

// Match is the consensus displacement between an edge's indexed frame and a new frame.
type Match struct {
	// Displacement is the scroll axis shift of the new frame relative to the indexed frame.
	Displacement int
	// Origin and New are one keypoint pair voting for Displacement, in feature space.
	Origin image.Point
	New    image.Point
	// Votes and RunnerUp are the two largest histogram counts.
	Votes    int
	RunnerUp int
}

// estimateOffset votes over the nearest neighbor of every new keypoint in the edge's index and
// returns the winning displacement.
func estimateOffset(edge *Edge, feats *Features) (Match, error) {
	if !edge.indexed() || len(feats.KeyPoints) == 0 {
		return Match{}, ErrNoConsensus
	}

	type pair struct {
		origin, query image.Point
	}
	votes := map[int]int{}
	first := map[int]pair{}
	order := []int{}
	for i, kp := range feats.KeyPoints {
		desc := feats.Descriptors[i]
		found := edge.index.Search(desc, 1)
		if len(found) == 0 {
			continue
		}
		id := found[0]
		origin := edge.keypoints[id]
		if origin.X != kp.X {
			continue
		}
		d := origin.Y - kp.Y
		if !edge.permits(d) {
			continue
		}
		if ann.Distance(edge.index.Descriptor(id), desc) > maxDescriptorDistance {
			continue
		}
		if votes[d] == 0 {
			first[d] = pair{origin, kp}
			order = append(order, d)
		}
		votes[d]++
	}

	best, bestVotes, runnerUp := 0, 0, 0
	for _, d := range order {
		switch n := votes[d]; {
		case n > bestVotes:
			best, bestVotes, runnerUp = d, n, bestVotes
		case n > runnerUp:
			runnerUp = n
		}
	}
	if bestVotes == 0 || float64(bestVotes) < minVoteRatio*float64(len(feats.KeyPoints)) {
		return Match{}, ErrNoConsensus
	}
	if bestVotes < minVoteMargin*runnerUp {
		return Match{}, ErrNoConsensus
	}
	rep := first[best]
	return Match{
		Displacement: best,
		Origin:       rep.origin,
		New:          rep.query,
		Votes:        bestVotes,
		RunnerUp:     runnerUp,
	}, nil
}
