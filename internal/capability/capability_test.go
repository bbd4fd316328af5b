package capability

import (
	"testing"

	"gecho/internal/errors"
)

func TestEcho_Respond(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"hello", "Echo: hello"},
		{"", "Echo: "},
		{"  padded  ", "Echo:   padded  "},
		{"bye now", "Echo: bye now"},
	}
	for _, tt := range tests {
		if got := (Echo{}).Respond(tt.line); got != tt.want {
			t.Errorf("Respond(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestUpper_Respond(t *testing.T) {
	if got := (Upper{}).Respond("Hello, World"); got != "Echo: HELLO, WORLD" {
		t.Errorf("got %q", got)
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Capability
		wantErr bool
	}{
		{"echo", Echo{}, false},
		{"ECHO", Echo{}, false},
		{" upper ", Upper{}, false},
		{"rot13", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%q) error = %v, wantErr = %v", tt.name, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrInvalidArgument) {
					t.Errorf("error %v should match ErrInvalidArgument", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ByName(%q) = %T, want %T", tt.name, got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "echo" || names[1] != "upper" {
		t.Errorf("Names() = %v", names)
	}
}
