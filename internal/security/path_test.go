package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative path", "galechat.db", false},
		{"nested relative path", "data/galechat.db", false},
		{"absolute path", "/var/lib/galechat/chat.db", false},
		{"empty path", "", true},
		{"traversal", "../../etc/passwd", true},
		{"hidden traversal", "data/../../secret.db", true},
		{"nul byte", "chat\x00.db", true},
		{"dot components cleaned", "./data/./chat.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
