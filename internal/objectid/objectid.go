// Package objectid derives document-store identifiers from identity-provider
// user ids.
package objectid

import (
	"crypto/sha256"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FromExternalID maps an external user id onto an ObjectID. The mapping is
// pure: the first 12 bytes of the SHA-256 digest of the id.
func FromExternalID(externalID string) primitive.ObjectID {
	sum := sha256.Sum256([]byte(externalID))
	var oid primitive.ObjectID
	copy(oid[:], sum[:len(oid)])
	return oid
}

