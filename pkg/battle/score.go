package battle

// ScoreTable holds the precomputed weight awarded to the winner of each
// round. Index 0 is round 1.
type ScoreTable []int

// NewScoreTable builds the weight table for a battle. The weight steps up by
// one every roundsPerIncrement rounds, starting at zero.
func NewScoreTable(maxRounds, roundsPerIncrement int) ScoreTable {
	if maxRounds <= 0 || roundsPerIncrement <= 0 {
		return nil
	}
	t := make(ScoreTable, maxRounds)
	w := 0
	for i := range t {
		if i != 0 && i%roundsPerIncrement == 0 {
			w++
		}
		t[i] = w
	}
	return t
}

// WeightForRound returns the score for winning the given 1-indexed round.
// Rounds outside the table are worth nothing.
func (t ScoreTable) WeightForRound(round int) int {
	if round < 1 || round > len(t) {
		return 0
	}
	return t[round-1]
}
