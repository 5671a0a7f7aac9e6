package logging

import "testing"

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		shouldError bool
	}{
		{"default format", DefaultFormat, false},
		{"detailed format", "%(asctime)s [%(levelname)s] %(name)s %(filename)s:%(lineno)d: %(message)s", false},
		{"literal only", "plain text", false},
		{"message only", "%(message)s", false},
		{"lineno with d verb", "%(lineno)d", false},
		{"empty", "", true},
		{"unknown field", "%(thread)s %(message)s", true},
		{"unterminated placeholder", "%(message", true},
		{"missing verb", "%(message)", true},
		{"unsupported verb", "%(message)f", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate(tt.format)
			if tt.shouldError && err == nil {
				t.Errorf("expected error, got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTemplateUsesCaller(t *testing.T) {
	withCaller, err := ParseTemplate("%(filename)s:%(lineno)d %(message)s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !withCaller.usesCaller() {
		t.Errorf("expected template with filename/lineno to use caller")
	}

	withoutCaller, err := ParseTemplate(DefaultFormat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withoutCaller.usesCaller() {
		t.Errorf("expected default template not to use caller")
	}
}
