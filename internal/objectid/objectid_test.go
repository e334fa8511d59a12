package objectid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hex24 = regexp.MustCompile(`^[0-9a-f]{24}$`)

func TestFromExternalID_Deterministic(t *testing.T) {
	ids := []string{"user_2abcDEF123", "", "user_☃", "a"}
	for _, id := range ids {
		first := FromExternalID(id)
		second := FromExternalID(id)
		assert.Equal(t, first, second, "derivation must be stable for %q", id)
	}
}

func TestFromExternalID_Shape(t *testing.T) {
	h := FromExternalID("user_2abcDEF123").Hex()
	assert.Regexp(t, hex24, h)
	assert.True(t, primitive.IsValidObjectID(h))

	// sha256("abc") = ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad
	assert.Equal(t, "ba7816bf8f01cfea414140de", FromExternalID("abc").Hex())
}

func TestFromExternalID_Distinct(t *testing.T) {
	seen := make(map[primitive.ObjectID]string)
	for _, id := range []string{"user_1", "user_2", "user_3", "User_1", "user_1 "} {
		oid := FromExternalID(id)
		if prev, dup := seen[oid]; dup {
			t.Fatalf("collision between %q and %q", prev, id)
		}
		seen[oid] = id
	}
}
