// Package catalog reads question catalogs in the JSON layout produced by
// question-bank export tools and turns them into bank entries.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stemsi/motoquiz-backend/internal/model"
)

var ErrNoCorrectOption = errors.New("question must have exactly one correct option")

// Option is a single answer choice of a catalog question.
type Option struct {
	Letter  string `json:"letter,omitempty"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is one catalog entry.
type Question struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Image    string   `json:"image,omitempty"`
	Options  []Option `json:"options"`
}

// Catalog is the whole file.
type Catalog struct {
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	Questions []Question `json:"questions"`
}

// Decode reads a catalog from r.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// ToModel converts a catalog question into a bank question. Options get ids
// in file order starting at 0. The subject is used when the question has no
// category of its own.
func (q *Question) ToModel(subject string) (*model.Question, error) {
	out := &model.Question{
		Text:          strings.TrimSpace(q.Text),
		Category:      strings.TrimSpace(q.Category),
		Image:         strings.TrimSpace(q.Image),
		Options:       make([]model.Option, 0, len(q.Options)),
		CorrectAnswer: -1,
	}
	if out.Category == "" {
		out.Category = strings.TrimSpace(subject)
	}

	for i, o := range q.Options {
		out.Options = append(out.Options, model.Option{ID: i, Content: strings.TrimSpace(o.Text)})
		if o.Correct {
			if out.CorrectAnswer != -1 {
				return nil, fmt.Errorf("question %d: %w", q.ID, ErrNoCorrectOption)
			}
			out.CorrectAnswer = i
		}
	}
	if out.CorrectAnswer == -1 {
		return nil, fmt.Errorf("question %d: %w", q.ID, ErrNoCorrectOption)
	}
	if out.Text == "" || out.Category == "" {
		return nil, fmt.Errorf("question %d: %w: text and category are required", q.ID, model.ErrInvalidQuestion)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("question %d: %w", q.ID, err)
	}
	return out, nil
}

// Plan splits a catalog into questions to insert and the reasons others were
// skipped. Questions whose text is already in existing, or repeated within
// the catalog, are skipped.
func Plan(c *Catalog, existing []model.Question) (insert []*model.Question, skipped []string) {
	seen := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		seen[normalize(q.Text)] = struct{}{}
	}

	for i := range c.Questions {
		q, err := c.Questions[i].ToModel(c.Subject)
		if err != nil {
			skipped = append(skipped, err.Error())
			continue
		}
		key := normalize(q.Text)
		if _, dup := seen[key]; dup {
			skipped = append(skipped, fmt.Sprintf("question %d: already in the bank", c.Questions[i].ID))
			continue
		}
		seen[key] = struct{}{}
		insert = append(insert, q)
	}
	return insert, skipped
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
