package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AnswerKind tags which member of the Answer union is set.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerBool
	AnswerText
	AnswerNumber
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerBool:
		return "bool"
	case AnswerText:
		return "text"
	case AnswerNumber:
		return "number"
	default:
		return "none"
	}
}

// Answer is a boolean, string or number. The zero value is an empty answer.
type Answer struct {
	kind AnswerKind
	b    bool
	s    string
	n    float64
}

func BoolAnswer(v bool) Answer      { return Answer{kind: AnswerBool, b: v} }
func TextAnswer(v string) Answer    { return Answer{kind: AnswerText, s: v} }
func NumberAnswer(v float64) Answer { return Answer{kind: AnswerNumber, n: v} }

func (a Answer) Kind() AnswerKind { return a.kind }
func (a Answer) IsZero() bool     { return a.kind == AnswerNone }

// Bool returns the boolean value and whether the answer holds one.
func (a Answer) Bool() (bool, bool) { return a.b, a.kind == AnswerBool }

// Text returns the string value and whether the answer holds one.
func (a Answer) Text() (string, bool) { return a.s, a.kind == AnswerText }

// Number returns the numeric value and whether the answer holds one.
func (a Answer) Number() (float64, bool) { return a.n, a.kind == AnswerNumber }

// Key is a stable identity used to tally equal answers.
func (a Answer) Key() string {
	switch a.kind {
	case AnswerBool:
		return "b:" + strconv.FormatBool(a.b)
	case AnswerText:
		return "s:" + a.s
	case AnswerNumber:
		return "n:" + strconv.FormatFloat(a.n, 'g', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether both answers carry the same kind and value.
func (a Answer) Equal(other Answer) bool {
	return a.Key() == other.Key()
}

func (a Answer) String() string {
	switch a.kind {
	case AnswerBool:
		if a.b {
			return "yes"
		}
		return "no"
	case AnswerText:
		return a.s
	case AnswerNumber:
		return strconv.FormatFloat(a.n, 'g', -1, 64)
	default:
		return ""
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerBool:
		return json.Marshal(a.b)
	case AnswerText:
		return json.Marshal(a.s)
	case AnswerNumber:
		return json.Marshal(a.n)
	default:
		return []byte("null"), nil
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return ErrInvalidAnswer
		}
		*a = BoolAnswer(v)
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return ErrInvalidAnswer
		}
		*a = TextAnswer(v)
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return ErrInvalidAnswer
		}
		*a = NumberAnswer(v)
	}
	return nil
}

// ParseAnswer converts command-line text into an answer: yes/no/true/false become
// booleans, numerals become numbers, everything else stays text.
func ParseAnswer(raw string) Answer {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "yes", "true":
		return BoolAnswer(true)
	case "no", "false":
		return BoolAnswer(false)
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return NumberAnswer(n)
	}
	return TextAnswer(trimmed)
}
