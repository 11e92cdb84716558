package parakeet

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// RunStepDetails is an open tagged union describing what a run step did. The
// service may add new variants at any time; decoding preserves unrecognized
// ones as *UnknownDetails instead of failing.
type RunStepDetails interface {
	detailsTag() string
}

// MessageCreationDetails records that the step produced a thread message.
type MessageCreationDetails struct {
	MessageID string `json:"message_id"`
}

func (*MessageCreationDetails) detailsTag() string { return "message_creation" }

func (d *MessageCreationDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            string `json:"type"`
		MessageCreation struct {
			MessageID string `json:"message_id"`
		} `json:"message_creation"`
	}{
		Type: "message_creation",
		MessageCreation: struct {
			MessageID string `json:"message_id"`
		}{MessageID: d.MessageID},
	})
}

// ToolCallsDetails records the tool calls issued by the step.
type ToolCallsDetails struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

func (*ToolCallsDetails) detailsTag() string { return "tool_calls" }

func (d *ToolCallsDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string     `json:"type"`
		ToolCalls []ToolCall `json:"tool_calls"`
	}{Type: "tool_calls", ToolCalls: d.ToolCalls})
}

// UnknownDetails holds a variant this SDK version does not model. Tag is the
// wire discriminator, Raw the full original JSON.
type UnknownDetails struct {
	Tag string
	Raw json.RawMessage
}

func (d *UnknownDetails) detailsTag() string { return d.Tag }

func (d *UnknownDetails) MarshalJSON() ([]byte, error) {
	return append(json.RawMessage(nil), d.Raw...), nil
}

func decodeRunStepDetails(raw json.RawMessage) RunStepDetails {
	tag := gjson.GetBytes(raw, "type").String()
	switch tag {
	case "message_creation":
		var d MessageCreationDetails
		if err := json.Unmarshal([]byte(gjson.GetBytes(raw, "message_creation").Raw), &d); err == nil {
			return &d
		}
	case "tool_calls":
		var d ToolCallsDetails
		if err := json.Unmarshal([]byte(gjson.GetBytes(raw, "tool_calls").Raw), &d.ToolCalls); err == nil {
			return &d
		}
	}
	return &UnknownDetails{Tag: tag, Raw: append(json.RawMessage(nil), raw...)}
}

// RunStepDetailsVisitor dispatches over run step detail variants.
// VisitUnknown receives variants added by the service after this SDK version
// shipped.
type RunStepDetailsVisitor interface {
	VisitMessageCreation(*MessageCreationDetails) error
	VisitToolCalls(*ToolCallsDetails) error
	VisitUnknown(*UnknownDetails) error
}

// VisitRunStepDetails invokes the visitor method matching the concrete
// variant of d.
func VisitRunStepDetails(d RunStepDetails, v RunStepDetailsVisitor) error {
	switch t := d.(type) {
	case *MessageCreationDetails:
		return v.VisitMessageCreation(t)
	case *ToolCallsDetails:
		return v.VisitToolCalls(t)
	case *UnknownDetails:
		return v.VisitUnknown(t)
	case nil:
		return nil
	default:
		return fmt.Errorf("unhandled run step details type %T", d)
	}
}
