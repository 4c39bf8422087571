package dual

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDialectPostgres(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "без плейсхолдеров запрос не меняется",
			query: "SELECT id FROM users",
			want:  "SELECT id FROM users",
		},
		{
			name:  "один плейсхолдер",
			query: "SELECT id FROM users WHERE uid = ?",
			want:  "SELECT id FROM users WHERE uid = $1",
		},
		{
			name:  "пять плейсхолдеров нумеруются слева направо",
			query: "INSERT INTO users (uid, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
			want:  "INSERT INTO users (uid, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rewrite(DriverPostgres, tt.query))
		})
	}
}

func TestToDialectPostgresTwentyPlaceholders(t *testing.T) {
	query := "INSERT INTO wide VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", 20), ", ") + ")"
	got := Rewrite(DriverPostgres, query)

	assert.NotContains(t, got, "?")
	for i := 1; i <= 20; i++ {
		assert.Contains(t, got, fmt.Sprintf("$%d", i))
	}
	// Порядок строго возрастающий слева направо.
	prev := -1
	for i := 1; i <= 20; i++ {
		idx := strings.Index(got, fmt.Sprintf("$%d,", i))
		if i == 20 {
			idx = strings.Index(got, "$20)")
		}
		assert.Greater(t, idx, prev, "placeholder $%d out of order", i)
		prev = idx
	}
}

func TestToDialectMySQLPassthrough(t *testing.T) {
	query := "UPDATE license_keys SET used = 1 WHERE key = ? AND used = 0"
	assert.Equal(t, query, Rewrite(DriverMySQL, query))
}
