package model

// MacroPayload is the structured metadata decoded from a draw.io macro
// element. Either field may be empty; both empty means the macro carried
// no recognizable payload, which is a normal outcome, not an error.
type MacroPayload struct {
	AttachmentID string
	DiagramName  string
}

// Empty reports whether neither field was decoded.
func (m MacroPayload) Empty() bool {
	return m.AttachmentID == "" && m.DiagramName == ""
}
