package ports

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a short message shown to the user
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier surfaces notices to the user (status line, stderr, tool result)
type Notifier interface {
	Notify(n Notice)
}
