package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, name := range []string{"Admin", "Student", "Faculty"} {
		role, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, Role(name), role)
	}

	for _, name := range []string{"Guest", "", "admin", "STUDENT"} {
		_, err := ParseRole(name)
		assert.Error(t, err, "role %q should be rejected", name)
	}

	_, err := ParseRole("Guest")
	assert.EqualError(t, err, "invalid role: Guest. Allowed roles: Admin, Student, Faculty")
}
