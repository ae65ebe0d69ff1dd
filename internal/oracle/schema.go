package oracle

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

//go:embed feedback_schema.json
var feedbackSchema string

//go:embed approach_schema.json
var approachSchema string

var (
	feedbackSchemaLoader = gojsonschema.NewStringLoader(feedbackSchema)
	approachSchemaLoader = gojsonschema.NewStringLoader(approachSchema)
)

var (
	// ErrInvalidFeedback indicates feedback output that does not match the schema.
	ErrInvalidFeedback = errors.New("invalid feedback document")

	// ErrInvalidAnalysis indicates approach analysis output that does not match the schema.
	ErrInvalidAnalysis = errors.New("invalid approach analysis")
)

type feedbackDoc struct {
	Summary             string   `json:"summary"`
	PositivePoints      []string `json:"positive_points"`
	PointsToAddress     []string `json:"points_to_address"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	OverallScore        *float64 `json:"overall_score"`
	DetailedFeedback    string   `json:"detailed_feedback"`
	Recommendations     []string `json:"recommendations"`
}

type approachDoc struct {
	Feedback            string   `json:"feedback"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	Score               float64  `json:"score"`
}

// decodeValid checks raw against schema and unmarshals it into v. Every
// failure wraps invalid.
func decodeValid(schema gojsonschema.JSONLoader, raw string, v any, invalid error) error {
	raw = stripCodeFence(raw)

	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", invalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", invalid, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", invalid, err)
	}
	return nil
}

// parseFeedback validates raw model output and decodes it.
func parseFeedback(raw string) (interview.FeedbackDraft, error) {
	var doc feedbackDoc
	if err := decodeValid(feedbackSchemaLoader, raw, &doc, ErrInvalidFeedback); err != nil {
		return interview.FeedbackDraft{}, err
	}

	return interview.FeedbackDraft{
		Summary:             doc.Summary,
		PositivePoints:      doc.PositivePoints,
		PointsToAddress:     doc.PointsToAddress,
		AreasForImprovement: doc.AreasForImprovement,
		OverallScore:        doc.OverallScore,
		DetailedFeedback:    doc.DetailedFeedback,
		Recommendations:     doc.Recommendations,
	}, nil
}

// parseApproach validates raw approach analysis output and decodes it.
func parseApproach(raw string) (interview.ApproachAnalysis, error) {
	var doc approachDoc
	if err := decodeValid(approachSchemaLoader, raw, &doc, ErrInvalidAnalysis); err != nil {
		return interview.ApproachAnalysis{}, err
	}
	return interview.ApproachAnalysis{
		Feedback:            doc.Feedback,
		Strengths:           doc.Strengths,
		AreasForImprovement: doc.AreasForImprovement,
		Score:               doc.Score,
	}, nil
}

// stripCodeFence removes a surrounding ```json fence, which some models add
// even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// unfence drops a surrounding markdown fence and its language tag from a
// code reply.
func unfence(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "```") {
		return code
	}
	if nl := strings.IndexByte(code, '\n'); nl >= 0 {
		code = code[nl+1:]
	} else {
		code = strings.TrimPrefix(code, "```")
	}
	code = strings.TrimSuffix(strings.TrimSpace(code), "```")
	return strings.TrimSpace(code)
}
