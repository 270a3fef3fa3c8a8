package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// QuestionID accepts both numeric and string ids.
type QuestionID string

func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

type TestQuestion struct {
	ID       QuestionID `json:"id"`
	Question string     `json:"question"`
}

type TestSet struct {
	Questions []TestQuestion `json:"test_questions"`
}

func LoadTestSet(fs afero.Fs, path string) (*TestSet, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read test set: %w", err)
	}
	var set TestSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode test set %s: %w", path, err)
	}
	kept := set.Questions[:0]
	for _, q := range set.Questions {
		if strings.TrimSpace(q.Question) != "" {
			kept = append(kept, q)
		}
	}
	set.Questions = kept
	if len(set.Questions) == 0 {
		return nil, fmt.Errorf("test set %s has no questions", path)
	}
	return &set, nil
}
