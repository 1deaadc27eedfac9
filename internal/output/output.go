// Package output defines the result envelope shared by checks, guards and
// commands. An Output carries everything a presentation layer needs; it is
// never re-derived from project state at render time.
package output

import "fmt"

// DetailKind identifies how a single Detail is rendered.
type DetailKind string

const (
	KindText          DetailKind = "text"
	KindSpacer        DetailKind = "spacer"
	KindKeyValue      DetailKind = "kv"
	KindVersionChange DetailKind = "version_change"
	KindCheck         DetailKind = "check"
	KindToken         DetailKind = "token"
)

// Detail is one typed render instruction. Only the fields relevant to Kind
// are populated.
type Detail struct {
	Kind      DetailKind `json:"type"`
	Content   string     `json:"content,omitempty"`
	Key       string     `json:"key,omitempty"`
	Value     string     `json:"value,omitempty"`
	Old       string     `json:"old,omitempty"`
	New       string     `json:"new,omitempty"`
	Name      string     `json:"name,omitempty"`
	Success   bool       `json:"success,omitempty"`
	Message   string     `json:"message,omitempty"`
	ExpiresIn int        `json:"expires_in,omitempty"` // seconds, token details only
}

// Output is the uniform result of a check or command.
type Output struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Details   []Detail       `json:"details,omitempty"`
	NextSteps []string       `json:"next_steps,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// OK returns a successful Output.
func OK(format string, args ...any) *Output {
	return &Output{Success: true, Message: sprintf(format, args...)}
}

// Fail returns a failed Output.
func Fail(format string, args ...any) *Output {
	return &Output{Success: false, Message: sprintf(format, args...)}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Text appends a text line.
func (o *Output) Text(format string, args ...any) *Output {
	o.Details = append(o.Details, Detail{Kind: KindText, Content: sprintf(format, args...)})
	return o
}

// Spacer appends a blank separator line.
func (o *Output) Spacer() *Output {
	o.Details = append(o.Details, Detail{Kind: KindSpacer})
	return o
}

// KV appends a key/value line.
func (o *Output) KV(key, value string) *Output {
	o.Details = append(o.Details, Detail{Kind: KindKeyValue, Key: key, Value: value})
	return o
}

// Change appends a before/after line.
func (o *Output) Change(before, after string) *Output {
	o.Details = append(o.Details, Detail{Kind: KindVersionChange, Old: before, New: after})
	return o
}

// Check appends a named sub-check result.
func (o *Output) Check(name string, success bool, message string) *Output {
	o.Details = append(o.Details, Detail{Kind: KindCheck, Name: name, Success: success, Message: message})
	return o
}

// Token appends a minted token the caller must present back.
func (o *Output) Token(key, value string, expiresIn int) *Output {
	o.Details = append(o.Details, Detail{Kind: KindToken, Key: key, Value: value, ExpiresIn: expiresIn})
	return o
}

// Lines appends each string as a text line with the given prefix.
func (o *Output) Lines(prefix string, lines []string) *Output {
	for _, l := range lines {
		o.Text("%s%s", prefix, l)
	}
	return o
}

// Next appends remediation steps.
func (o *Output) Next(steps ...string) *Output {
	o.NextSteps = append(o.NextSteps, steps...)
	return o
}

// With sets a machine-readable data entry.
func (o *Output) With(key string, value any) *Output {
	if o.Data == nil {
		o.Data = make(map[string]any)
	}
	o.Data[key] = value
	return o
}

// Get returns a data entry, or nil.
func (o *Output) Get(key string) any {
	if o == nil || o.Data == nil {
		return nil
	}
	return o.Data[key]
}

// Actionable reports whether a failed Output tells the user what to do next.
func (o *Output) Actionable() bool {
	return o.Success || len(o.NextSteps) > 0
}

// Failure copies the message, details and next steps of another Output into
// a new failed Output. Used when a command re-frames a check failure.
func Failure(from *Output) *Output {
	out := &Output{Success: false, Message: from.Message}
	out.Details = append(out.Details, from.Details...)
	out.NextSteps = append(out.NextSteps, from.NextSteps...)
	for k, v := range from.Data {
		out.With(k, v)
	}
	return out
}
