package asr

import (
	"fmt"
	"math"
	"strings"

	"github.com/rbright/lampwake/internal/recognition"
	"google.golang.org/protobuf/types/known/structpb"
)

// Hypothesis is one recognizer response.
type Hypothesis struct {
	Transcript string
	Confidence float32
	IsFinal    bool
}

// Message encodes h as a response struct.
func (h Hypothesis) Message() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"transcript": structpb.NewStringValue(h.Transcript),
		"confidence": structpb.NewNumberValue(float64(h.Confidence)),
		"is_final":   structpb.NewBoolValue(h.IsFinal),
	}}
}

// ParseHypothesis decodes a response struct. Missing fields take zero values.
func ParseHypothesis(msg *structpb.Struct) Hypothesis {
	fields := msg.GetFields()
	confidence := fields["confidence"].GetNumberValue()
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}
	return Hypothesis{
		Transcript: cleanSegment(fields["transcript"].GetStringValue()),
		Confidence: float32(confidence),
		IsFinal:    fields["is_final"].GetBoolValue(),
	}
}

// ProfilesMessage encodes the ListProfiles response.
func ProfilesMessage(profiles []recognition.Profile) (*structpb.Struct, error) {
	items := make([]any, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, map[string]any{
			"id":          p.ID,
			"language":    p.Language,
			"description": p.Description,
		})
	}
	msg, err := structpb.NewStruct(map[string]any{"profiles": items})
	if err != nil {
		return nil, fmt.Errorf("encode profiles: %w", err)
	}
	return msg, nil
}

// ParseProfiles decodes the ListProfiles response, skipping entries without an id.
func ParseProfiles(msg *structpb.Struct) []recognition.Profile {
	list := msg.GetFields()["profiles"].GetListValue().GetValues()
	profiles := make([]recognition.Profile, 0, len(list))
	for _, item := range list {
		fields := item.GetStructValue().GetFields()
		id := strings.TrimSpace(fields["id"].GetStringValue())
		if id == "" {
			continue
		}
		profiles = append(profiles, recognition.Profile{
			ID:          id,
			Language:    strings.TrimSpace(fields["language"].GetStringValue()),
			Description: strings.TrimSpace(fields["description"].GetStringValue()),
		})
	}
	return profiles
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
