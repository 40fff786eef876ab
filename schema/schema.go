// Package schema describes the crowd-sourced morphology decision tree:
// an ordered set of questions, each owning a contiguous slice of the
// flat label/prediction vector. A Schema is validated once at
// construction and is immutable afterwards, so every training replica
// can read it concurrently without locking.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
)

// Question is one node of the decision tree with its mutually
// exclusive answers, in label-column order.
type Question struct {
	Name    string   `yaml:"name" json:"name"`
	Answers []string `yaml:"answers" json:"answers"`
}

// Range is a half-open [Start, End) index range into the flat vector.
type Range struct {
	Start int
	End   int
}

// Len returns the number of answers in the range.
func (r Range) Len() int { return r.End - r.Start }

// Schema maps questions to their answer index ranges. Construct with
// New or NewFromRanges; zero value is not usable.
type Schema struct {
	questions []string
	ranges    []Range
	byName    map[string]Range
	labelCols []string
	width     int
}

// New builds a Schema from questions declared in label-column order.
// Each question's answers occupy the next contiguous indices of the
// flat vector, so the resulting ranges partition [0, Width()) exactly.
func New(questions []Question) (*Schema, error) {
	names := make([]string, len(questions))
	ranges := make([]Range, len(questions))
	var labelCols []string

	offset := 0
	for i, q := range questions {
		if q.Name == "" {
			return nil, errors.Errorf("question %d has no name", i)
		}
		names[i] = q.Name
		ranges[i] = Range{Start: offset, End: offset + len(q.Answers)}
		offset += len(q.Answers)
		for _, a := range q.Answers {
			labelCols = append(labelCols, fmt.Sprintf("%s_%s", q.Name, a))
		}
	}

	s, err := NewFromRanges(names, ranges)
	if err != nil {
		return nil, err
	}
	s.labelCols = labelCols
	return s, nil
}

// NewFromRanges builds a Schema directly from answer index ranges.
// Ranges must be non-empty and strictly ordered without overlap; gaps
// between ranges are allowed. Violations are configuration errors and
// fail here, never downstream.
func NewFromRanges(questions []string, ranges []Range) (*Schema, error) {
	if len(questions) == 0 {
		return nil, errors.New("schema: no questions declared")
	}
	if len(questions) != len(ranges) {
		return nil, errors.Errorf("schema: %d questions but %d ranges", len(questions), len(ranges))
	}

	byName := make(map[string]Range, len(questions))
	width := 0
	prevEnd := 0
	for i, r := range ranges {
		q := questions[i]
		if _, dup := byName[q]; dup {
			return nil, errors.Errorf("schema: duplicate question %q", q)
		}
		if r.Start < 0 {
			return nil, errors.Errorf("schema: question %q has negative start %d", q, r.Start)
		}
		if r.End <= r.Start {
			return nil, errors.Errorf("schema: question %q has empty answer range [%d, %d)", q, r.Start, r.End)
		}
		if r.Start < prevEnd {
			return nil, errors.Errorf("schema: question %q range [%d, %d) overlaps previous range ending at %d",
				q, r.Start, r.End, prevEnd)
		}
		byName[q] = r
		prevEnd = r.End
		if r.End > width {
			width = r.End
		}
	}

	return &Schema{
		questions: append([]string(nil), questions...),
		ranges:    append([]Range(nil), ranges...),
		byName:    byName,
		width:     width,
	}, nil
}

// Questions returns the question names in declaration order. The
// returned slice must not be modified.
func (s *Schema) Questions() []string { return s.questions }

// NumQuestions returns the number of questions.
func (s *Schema) NumQuestions() int { return len(s.questions) }

// Width returns the flat label/prediction vector length.
func (s *Schema) Width() int { return s.width }

// Range returns the answer index range of the i-th question.
func (s *Schema) Range(i int) Range { return s.ranges[i] }

// SliceFor returns the answer index range for a question by name.
func (s *Schema) SliceFor(question string) (Range, error) {
	r, ok := s.byName[question]
	if !ok {
		return Range{}, errors.Errorf("schema: unknown question %q", question)
	}
	return r, nil
}

// LabelCols returns the flat vector column names ("question_answer"),
// when the schema was built from named answers. Empty for schemas built
// from raw ranges.
func (s *Schema) LabelCols() []string { return s.labelCols }

// IsBinary reports whether the schema encodes exactly one two-answer
// question. Only then is the classification-accuracy diagnostic
// defined.
func (s *Schema) IsBinary() bool {
	return len(s.questions) == 1 && s.width == 2 && s.ranges[0] == Range{Start: 0, End: 2}
}
