package visualization

import (
	"path/filepath"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		wantBin string
		wantErr bool
	}{
		{"linux", "xdg-open", false},
		{"darwin", "open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "http://localhost:8080/")
			if (err != nil) != tt.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := filepath.Base(cmd.Args[0]); got != tt.wantBin {
				t.Errorf("command = %s, want %s", got, tt.wantBin)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "http://localhost:8080/" {
				t.Errorf("last arg = %q, want the URL", last)
			}
		})
	}
}

func TestBrowserCommand_EmptyURL(t *testing.T) {
	if _, err := browserCommand("linux", ""); err == nil {
		t.Error("expected error for empty URL")
	}
}
