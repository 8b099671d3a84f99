package insight

import (
	"encoding/json"
	"strings"
)

const (
	TypeText  = "text"
	TypeChart = "chart"
)

// ChartPoint is one bar/slice of a chart answer.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Response is the structured answer rendered by the insight panel: either a
// prose answer or a small named-value series.
type Response struct {
	ResponseType string      `json:"responseType"`
	Data         interface{} `json:"data"`
}

type rawResponse struct {
	ResponseType string          `json:"responseType"`
	Data         json.RawMessage `json:"data"`
}

// Parse interprets the model output against the declared response schema.
// Output that does not match is wrapped into a text response rather than
// treated as a failure; models ignore response schemas often enough that a
// hard error here would make the panel flaky.
func Parse(output string) Response {
	var raw rawResponse
	if err := json.Unmarshal([]byte(output), &raw); err == nil {
		switch raw.ResponseType {
		case TypeText:
			var text string
			if json.Unmarshal(raw.Data, &text) == nil && text != "" {
				return Response{ResponseType: TypeText, Data: text}
			}
		case TypeChart:
			var points []ChartPoint
			if json.Unmarshal(raw.Data, &points) == nil {
				return Response{ResponseType: TypeChart, Data: points}
			}
		}
	}

	return Response{ResponseType: TypeText, Data: strings.TrimSpace(output)}
}
