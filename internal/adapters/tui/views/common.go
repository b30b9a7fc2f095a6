package views

import (
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// ViewState contains common state shared by all view models.
// Embed this struct in view models to get width/height and message handling.
type ViewState struct {
	Width      int
	Height     int
	Message    string
	MessageErr bool
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetMessage sets a message to display in the view
func (s *ViewState) SetMessage(msg string, isErr bool) {
	s.Message = msg
	s.MessageErr = isErr
}

// ClearMessage clears the current message
func (s *ViewState) ClearMessage() {
	s.Message = ""
	s.MessageErr = false
}

// Messages for view switching
type SwitchToGroupsMsg struct{}

type SwitchToHelpMsg struct{}

// SwitchToPickerMsg asks to pick an unlinked canvas to start a group from
type SwitchToPickerMsg struct{}

// SwitchToConfirmMsg asks to unlink Group, or every group when Group is nil
type SwitchToConfirmMsg struct {
	Group *domain.LinkageGroup
}

// SwitchToLinkMsg asks for a canvas to link with Anchor
type SwitchToLinkMsg struct {
	Anchor string
}

// OpenEditorMsg asks to edit a canvas in the terminal editor
type OpenEditorMsg struct {
	Path string
}

// NoticeMsg carries a notice raised outside the UI, such as by the sync engine
type NoticeMsg struct {
	Notice ports.Notice
}

// ResultMsg reports the outcome of an action. The group list reloads after
// a successful one.
type ResultMsg struct {
	Message string
	Err     error
}
