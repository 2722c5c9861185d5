package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_EveryUpHasADown(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	require.Len(t, ups, 4)
	assert.Equal(t, ups, downs)
}

func TestFS_SchemaConstraints(t *testing.T) {
	users, err := fs.ReadFile(FS, "000001_create_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(users), "UNIQUE INDEX IF NOT EXISTS idx_users_email")
	assert.Contains(t, string(users), "'ADMIN', 'TEACHER', 'SECRETARY'")

	signup, err := fs.ReadFile(FS, "000004_create_signup_requests.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(signup), "idx_signup_requests_email")
}
