package questionnaire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Answer is either a single option index or a set of indices from a
// multi-select question. On the wire it is a number or an array.
type Answer struct {
	index   int
	indices []int
	multi   bool
}

// Single returns the answer to a single-select question.
func Single(index int) Answer {
	return Answer{index: index}
}

// Multi returns the answer to a multi-select question. Indices are sorted.
func Multi(indices ...int) Answer {
	s := slices.Clone(indices)
	slices.Sort(s)
	return Answer{indices: s, multi: true}
}

func (a Answer) IsMulti() bool { return a.multi }

// Index returns the chosen option of a single-select answer.
func (a Answer) Index() int { return a.index }

// Indices returns a copy of the chosen options of a multi-select answer.
func (a Answer) Indices() []int { return slices.Clone(a.indices) }

// Equal reports whether two answers select the same options.
func (a Answer) Equal(b Answer) bool {
	if a.multi != b.multi {
		return false
	}
	if a.multi {
		return slices.Equal(a.indices, b.indices)
	}
	return a.index == b.index
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		if a.indices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.indices)
	}
	return json.Marshal(a.index)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var idx []int
		if err := json.Unmarshal(b, &idx); err != nil {
			return fmt.Errorf("decoding answer: %w", err)
		}
		*a = Multi(idx...)
		return nil
	}
	var i int
	if err := json.Unmarshal(b, &i); err != nil {
		return fmt.Errorf("decoding answer: %w", err)
	}
	*a = Single(i)
	return nil
}
