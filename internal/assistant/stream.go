package assistant

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// citationPattern matches embedded file citation markers like 【4:0†Profile.pdf】.
var citationPattern = regexp.MustCompile(`【[^】]*】`)

// StripCitations removes citation markers from a content fragment,
// preserving the surrounding text.
func StripCitations(s string) string {
	return citationPattern.ReplaceAllString(s, "")
}

// RunStream is a pull-based iterator over the upstream run's framed event
// stream, yielding normalized StreamEvents. Frames unrelated to message
// content are discarded; malformed frames are skipped, never fatal.
type RunStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *logger.Logger

	event model.StreamEvent
	done  bool
	err   error
}

func newRunStream(body io.ReadCloser, log *logger.Logger) *RunStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &RunStream{
		body:    body,
		scanner: scanner,
		logger:  log,
	}
}

// rawFrame is the subset of upstream frame fields the relay cares about.
type rawFrame struct {
	Object string `json:"object"`
	Status string `json:"status"`
	Delta  struct {
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"delta"`
	StepDetails struct {
		Type      string `json:"type"`
		ToolCalls []struct {
			Type string `json:"type"`
		} `json:"tool_calls"`
	} `json:"step_details"`
	LastError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

// Next advances to the next normalized event. It returns false after a
// terminal event (done or error) has been yielded or the stream ends.
func (s *RunStream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == model.DoneSentinel {
			s.event = model.StreamEvent{Type: model.StreamDone}
			s.done = true
			return true
		}

		var frame rawFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// Partial or non-JSON frame, skip it.
			continue
		}

		switch frame.Object {
		case "thread.message.delta":
			var b strings.Builder
			for _, part := range frame.Delta.Content {
				if part.Text.Value != "" {
					b.WriteString(part.Text.Value)
				}
			}
			content := StripCitations(b.String())
			if content == "" {
				continue
			}
			s.event = model.StreamEvent{Type: model.StreamContent, Content: content}
			return true

		case "thread.run":
			switch frame.Status {
			case "completed":
				s.event = model.StreamEvent{Type: model.StreamDone}
				s.done = true
				return true
			case "failed":
				s.logger.Error("run failed",
					"code", frame.LastError.Code,
					"message", frame.LastError.Message,
				)
				s.event = model.StreamEvent{Type: model.StreamError, Err: "Assistant run failed"}
				s.done = true
				return true
			}

		case "thread.run.step.completed":
			if frame.StepDetails.Type == "tool_calls" {
				for _, call := range frame.StepDetails.ToolCalls {
					if call.Type == "file_search" {
						s.logger.Info("file search executed")
					}
				}
			}
		}
	}

	s.err = s.scanner.Err()
	s.done = true
	return false
}

// Event returns the event produced by the last successful Next.
func (s *RunStream) Event() model.StreamEvent {
	return s.event
}

// Err reports a transport error, if any, once Next has returned false.
func (s *RunStream) Err() error {
	return s.err
}

// Close releases the underlying response body.
func (s *RunStream) Close() error {
	return s.body.Close()
}
