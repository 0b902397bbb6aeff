package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Condition = string

const (
	ConditionNormal = "normal"

	MessageNoAbnormalities = "no abnormalities detected"
	MessageDetectedPrefix  = "detected: "
)

var targetConditions = []Condition{
	"moderate-ventriculomegaly",
	"cerebellah-hypoplasia",
	ConditionNormal,
	"polencephaly",
	"encephalocele",
	"mild-ventriculomegaly",
	"severe-ventriculomegaly",
	"arachnoid-cyst",
	"colphocephaly",
}

// TargetConditions returns the allow-list in declared order.
func TargetConditions() []Condition {
	out := make([]Condition, len(targetConditions))
	copy(out, targetConditions)
	return out
}

func IsTargetCondition(name string) bool {
	for _, c := range targetConditions {
		if c == name {
			return true
		}
	}
	return false
}

// ClassScore is the value attached to a class in the remote predictions map.
// The service answers either with a bare number or with an object holding
// the confidence; the original encoding is kept for the response.
type ClassScore struct {
	Confidence float64
	ClassID    *int

	raw json.RawMessage
}

func (s *ClassScore) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("class score is empty")
	}

	if trimmed[0] == '{' {
		var obj struct {
			Confidence *float64 `json:"confidence"`
			ClassID    *int     `json:"class_id"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("decode class score: %w", err)
		}
		if obj.Confidence == nil {
			return errors.New("class score has no confidence")
		}
		s.Confidence = *obj.Confidence
		s.ClassID = obj.ClassID
	} else {
		if err := json.Unmarshal(trimmed, &s.Confidence); err != nil {
			return fmt.Errorf("decode class score: %w", err)
		}
		s.ClassID = nil
	}

	s.raw = append(s.raw[:0], trimmed...)
	return nil
}

func (s ClassScore) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	if s.ClassID != nil {
		return json.Marshal(struct {
			Confidence float64 `json:"confidence"`
			ClassID    int     `json:"class_id"`
		}{s.Confidence, *s.ClassID})
	}
	return json.Marshal(s.Confidence)
}

type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InferenceResponse is the payload returned by the hosted classifier.
// Top-level keys outside the modelled ones are kept in Extra.
type InferenceResponse struct {
	InferenceID      string                `json:"inference_id,omitempty"`
	Time             float64               `json:"time,omitempty"`
	Image            *ImageInfo            `json:"image,omitempty"`
	Predictions      map[string]ClassScore `json:"predictions"`
	PredictedClasses []string              `json:"predicted_classes"`

	Extra map[string]json.RawMessage `json:"-"`
}

var inferenceResponseKeys = []string{"inference_id", "time", "image", "predictions", "predicted_classes"}

func (r *InferenceResponse) UnmarshalJSON(data []byte) error {
	type plain InferenceResponse
	var wire struct {
		plain
		Predictions      *json.RawMessage `json:"predictions"`
		PredictedClasses *json.RawMessage `json:"predicted_classes"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Predictions == nil {
		return errors.New("response has no predictions")
	}
	if wire.PredictedClasses == nil {
		return errors.New("response has no predicted_classes")
	}

	out := InferenceResponse(wire.plain)
	if err := json.Unmarshal(*wire.Predictions, &out.Predictions); err != nil {
		return fmt.Errorf("predictions: %w", err)
	}
	if err := json.Unmarshal(*wire.PredictedClasses, &out.PredictedClasses); err != nil {
		return fmt.Errorf("predicted_classes: %w", err)
	}
	if out.Predictions == nil {
		out.Predictions = map[string]ClassScore{}
	}
	if out.PredictedClasses == nil {
		out.PredictedClasses = []string{}
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range inferenceResponseKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		out.Extra = all
	}

	*r = out
	return nil
}

// PredictionResult is the filtered response sent back to clients.
// Extra keys from the upstream response are emitted alongside the
// modelled fields; a modelled field wins on a name clash.
type PredictionResult struct {
	InferenceID      string                `json:"inference_id,omitempty"`
	Time             float64               `json:"time,omitempty"`
	Image            *ImageInfo            `json:"image,omitempty"`
	Predictions      map[string]ClassScore `json:"predictions"`
	PredictedClasses []string              `json:"predicted_classes"`
	DiagnosisMessage string                `json:"diagnosis_message"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p PredictionResult) MarshalJSON() ([]byte, error) {
	type plain PredictionResult
	data, err := json.Marshal(plain(p))
	if err != nil || len(p.Extra) == 0 {
		return data, err
	}

	merged := make(map[string]json.RawMessage, len(p.Extra)+6)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

type Upload struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Filename     string    `json:"filename"`
	LocalPath    string    `json:"-"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
