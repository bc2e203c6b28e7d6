package exam

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// IntN draws a uniform integer in [0, n).
type IntN interface {
	IntN(n int) int
}

// NewRand returns a PRNG seeded from crypto/rand.
func NewRand() (*rand.Rand, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(b[:8]),
		binary.LittleEndian.Uint64(b[8:]),
	)), nil
}

// CanStart reports whether a pool is large enough for a full exam.
func CanStart(pool []model.Question, count int) bool {
	return count > 0 && len(uniqueQuestions(pool)) >= count
}

// SelectQuestionSet draws count distinct questions from pool, uniformly and
// without replacement, using a partial Fisher-Yates shuffle over indices.
// Questions sharing an id are considered the same question.
func SelectQuestionSet(pool []model.Question, count int, rng IntN) ([]model.Question, error) {
	unique := uniqueQuestions(pool)
	if count <= 0 || len(unique) < count {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientQuestions, len(unique), count)
	}

	idx := make([]int, len(unique))
	for i := range idx {
		idx[i] = i
	}

	selected := make([]model.Question, count)
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		selected[i] = unique[idx[i]]
	}
	return selected, nil
}

func uniqueQuestions(pool []model.Question) []model.Question {
	seen := make(map[uuid.UUID]struct{}, len(pool))
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
