package notice

import (
	"bytes"
	"strings"
	"testing"

	"canvaslink/internal/ports"
)

func TestConsole_Notify(t *testing.T) {
	tests := []struct {
		name   string
		notice ports.Notice
		want   string
	}{
		{
			name:   "info",
			notice: ports.Notice{Level: ports.NoticeInfo, Message: "Created linked version AC1.canvas"},
			want:   "Created linked version AC1.canvas",
		},
		{
			name:   "error",
			notice: ports.Notice{Level: ports.NoticeError, Message: "Failed to create linked version: not found"},
			want:   "Failed to create linked version: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf, nil).Notify(tt.notice)

			got := buf.String()
			if !strings.Contains(got, tt.want) {
				t.Errorf("output %q does not contain %q", got, tt.want)
			}
			if !strings.HasSuffix(got, "\n") {
				t.Errorf("output %q is not newline terminated", got)
			}
		})
	}
}

func TestFunc_Notify(t *testing.T) {
	var got []ports.Notice
	var n ports.Notifier = Func(func(n ports.Notice) { got = append(got, n) })

	n.Notify(ports.Notice{Message: "one"})
	n.Notify(ports.Notice{Level: ports.NoticeError, Message: "two"})

	if len(got) != 2 || got[1].Level != ports.NoticeError {
		t.Errorf("got %+v", got)
	}
}
