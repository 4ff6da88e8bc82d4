package domain

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a profile document. Fields without a typed counterpart are kept
// in Extra and stored and returned unchanged.
type User struct {
	ID          primitive.ObjectID     `json:"_id,omitzero" bson:"_id,omitempty"`
	DisplayName string                 `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Email       string                 `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	PhotoURL    string                 `json:"photoURL,omitempty" bson:"photoURL,omitempty" validate:"omitempty,url"`
	Extra       map[string]interface{} `json:"-" bson:",inline" validate:"-"`
}

// userFields has the typed fields of User without its JSON methods.
type userFields User

var userJSONKeys = []string{"_id", "displayName", "email", "photoURL"}

func (u User) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(userFields(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return known, nil
	}

	doc := make(map[string]interface{}, len(u.Extra)+len(userJSONKeys))
	for k, v := range u.Extra {
		doc[k] = v
	}
	// typed fields win over extras of the same name
	if err := json.Unmarshal(known, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var known userFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}

	// encoding/json matches field names case-insensitively
	for k := range extra {
		if isUserJSONKey(k) {
			delete(extra, k)
		}
	}

	*u = User(known)
	if len(extra) > 0 {
		u.Extra = extra
	}
	return nil
}

func isUserJSONKey(k string) bool {
	for _, known := range userJSONKeys {
		if strings.EqualFold(k, known) {
			return true
		}
	}
	return false
}
