package cwc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireResponse tolerates the intake's variant response shapes. Different
// deployments have been seen returning the receipt as message_id,
// messageId, or id, and the error as either a bare string or an object.
type wireResponse struct {
	Success      *bool           `json:"success"`
	MessageID    string          `json:"message_id"`
	MessageIDAlt string          `json:"messageId"`
	ID           string          `json:"id"`
	Error        json.RawMessage `json:"error"`
}

// receipt returns the first populated receipt field.
func (w *wireResponse) receipt() string {
	for _, id := range []string{w.MessageID, w.MessageIDAlt, w.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// errText flattens the error variants into one string.
func errText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Code != "" {
			return obj.Code + ": " + obj.Message
		}
		return obj.Message
	}

	// Unknown shape; keep the raw text so nothing is silently dropped.
	return trimmed
}

// parseSubmissionResponse turns an intake HTTP response into a
// SubmissionResult. Acceptance requires a 2xx status plus either a receipt
// id or an explicit success flag; everything else is a rejection carrying
// the best available detail. The returned error is reserved for responses
// too broken to classify at all (currently none; kept for symmetry with
// the Submitter contract).
func parseSubmissionResponse(status int, body []byte) (SubmissionResult, error) {
	var wire wireResponse
	decodeErr := json.Unmarshal(body, &wire)

	if status < 200 || status > 299 {
		detail := ""
		if decodeErr == nil {
			detail = errText(wire.Error)
		}
		if detail == "" {
			detail = fmt.Sprintf("intake returned status %d", status)
		}
		return SubmissionResult{Err: detail}, nil
	}

	if decodeErr != nil {
		return SubmissionResult{Err: fmt.Sprintf("unparseable intake response: %v", decodeErr)}, nil
	}

	if detail := errText(wire.Error); detail != "" {
		return SubmissionResult{Err: detail}, nil
	}
	if wire.Success != nil && !*wire.Success {
		return SubmissionResult{Err: "intake reported failure without detail"}, nil
	}

	if id := wire.receipt(); id != "" {
		return SubmissionResult{Accepted: true, MessageID: id}, nil
	}
	if wire.Success != nil && *wire.Success {
		return SubmissionResult{Accepted: true}, nil
	}

	// 2xx with neither receipt nor flag: refuse to guess.
	return SubmissionResult{Err: "intake response carried no receipt id"}, nil
}
