package game

import (
	"math/rand"
	"unicode"
)

// minDistractors is the floor on filler characters added to every grid.
const minDistractors = 8

// distractorAlphabet holds plausible single syllables used as filler.
var distractorAlphabet = []string{
	"가", "나", "다", "라", "마", "바", "사", "자", "차", "카", "타", "파", "하",
	"고", "노", "도", "로", "모", "보", "소", "조", "초", "코", "토", "포", "호",
	"구", "누", "두", "루", "무", "부", "수", "주", "추", "쿠", "투", "푸", "후",
}

// answerChars splits answer into its non-whitespace characters, in order.
func answerChars(answer string) []string {
	chars := make([]string, 0, len(answer))
	for _, r := range answer {
		if unicode.IsSpace(r) {
			continue
		}
		chars = append(chars, string(r))
	}
	return chars
}

// BuildGrid returns the shuffled pool of selectable characters for answer.
// The grid holds every answer character with its multiplicity plus
// max(8, 2k) distractors, where k is the number of answer characters.
func BuildGrid(answer string, rnd *rand.Rand) []string {
	chars := answerChars(answer)
	numDistractors := 2 * len(chars)
	if numDistractors < minDistractors {
		numDistractors = minDistractors
	}

	grid := make([]string, 0, len(chars)+numDistractors)
	grid = append(grid, chars...)
	grid = append(grid, drawDistractors(numDistractors, rnd)...)

	rnd.Shuffle(len(grid), func(i, j int) {
		grid[i], grid[j] = grid[j], grid[i]
	})
	return grid
}

// drawDistractors picks n syllables without replacement while the alphabet
// lasts; once it is used up the alphabet is refilled and repeats begin.
func drawDistractors(n int, rnd *rand.Rand) []string {
	out := make([]string, 0, n)
	var pool []string
	for len(out) < n {
		if len(pool) == 0 {
			pool = append(pool[:0], distractorAlphabet...)
		}
		i := rnd.Intn(len(pool))
		out = append(out, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return out
}
