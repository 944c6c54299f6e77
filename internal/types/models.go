package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeedbackItem is one raw customer feedback record: survey answers and/or an
// analysed audio message.
type FeedbackItem struct {
	ID        string         `json:"id,omitempty"`
	CompanyID string         `json:"companyId"`
	UserEmail string         `json:"userEmail,omitempty"`
	Quess     []SurveyAnswer `json:"quess,omitempty"`
	MetaData  *AudioMeta     `json:"metaData,omitempty"`
}

type SurveyAnswer struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question"`
	Answer     float64 `json:"answer"`
}

type AudioMeta struct {
	AudioID          string           `json:"audioId"`
	DetectedLanguage string           `json:"detectedLanguage"`
	AudioDurationSec float64          `json:"audioDurationSec"`
	Transcript       string           `json:"transcript,omitempty"`
	FeedbackAnalysis FeedbackAnalysis `json:"feedbackAnalysis"`
}

type FeedbackAnalysis struct {
	OverallSentiment   string   `json:"overallSentiment"`
	TonePrimary        string   `json:"tonePrimary"`
	PositiveIndicators []string `json:"positiveIndicators"`
	NegativeIndicators []string `json:"negativeIndicators"`
	ComplaintsDetected bool     `json:"complaintsDetected"`
	Recommendations    []string `json:"recommendations"`
	RetentionRisk      string   `json:"retentionRisk"`
}

// UnmarshalJSON accepts metaData either as an object or as a JSON-encoded
// string, both of which the upstream reviews API returns.
func (m *AudioMeta) UnmarshalJSON(data []byte) error {
	type plain AudioMeta
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = AudioMeta{}
			return nil
		}
		data = []byte(s)
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("metaData: %w", err)
	}
	*m = AudioMeta(p)
	return nil
}

// UnmarshalJSON accepts the answer as a number or a numeric string.
func (a *SurveyAnswer) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID string          `json:"questionId"`
		Question   string          `json:"question"`
		Answer     json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.QuestionID, a.Question = raw.QuestionID, raw.Question
	if len(raw.Answer) == 0 || string(raw.Answer) == "null" || string(raw.Answer) == `""` {
		return nil
	}
	var n json.Number
	if raw.Answer[0] == '"' {
		var s string
		if err := json.Unmarshal(raw.Answer, &s); err != nil {
			return err
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(raw.Answer, &n); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("answer %q: %w", n, err)
	}
	a.Answer = f
	return nil
}

// Empty reports whether the record carried no usable audio analysis.
func (m *AudioMeta) Empty() bool {
	return m == nil || (m.AudioID == "" && m.FeedbackAnalysis.OverallSentiment == "")
}
