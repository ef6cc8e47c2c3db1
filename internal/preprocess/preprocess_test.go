package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: " \n\t ", want: ""},
		{name: "collapse", input: "  headache \n\n and   nausea\t", want: "headache and nausea"},
		{name: "email", input: "contact jane.doe+x@example.org today", want: "contact [EMAIL] today"},
		{name: "phone dashed", input: "call 555-123-4567", want: "call [PHONE]"},
		{name: "phone dotted", input: "call 555.123.4567", want: "call [PHONE]"},
		{name: "phone plain", input: "call 5551234567", want: "call [PHONE]"},
		{name: "ssn", input: "ssn 123-45-6789 on file", want: "ssn [SSN] on file"},
		{
			name:  "mixed",
			input: "Chest pain.  Email a@b.io,\nphone 555-000-1111, SSN 987-65-4321",
			want:  "Chest pain. Email [EMAIL], phone [PHONE], SSN [SSN]",
		},
		{name: "short numbers kept", input: "temp 38.5 for 3 days", want: "temp 38.5 for 3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Process(tt.input))
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b", Clean("\ta\r\n  b "))
}
