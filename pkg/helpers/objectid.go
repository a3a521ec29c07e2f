package helpers

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID returns a fresh 24-char hex identifier.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IsValidID reports whether s is a 24-char hex identifier.
func IsValidID(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}
