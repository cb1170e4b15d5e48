package repository

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/face-auth/internal/face"
)

var (
	// ErrUserNotFound is returned when no user matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUserID is returned for identifiers that are not 24 hex digits.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrAttemptNotFound is returned when no attempt matches the request and owner.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// User is the slice of the user document the face service reads and writes.
// Identity fields are owned by the account service; only FaceVector and HasFaceID
// are written here.
type User struct {
	ID         string `gorm:"column:id;primaryKey;size:24"`
	Role       string `gorm:"column:role;size:32"`
	HasFaceID  bool   `gorm:"column:has_face_id;not null;default:false"`
	FaceVector Vector `gorm:"column:face_vector"`
}

// TableName overrides the default table name.
func (User) TableName() string {
	return "users"
}

// HasRegisteredFace reports whether a verification can run against this user.
func (u *User) HasRegisteredFace() bool {
	return u.HasFaceID && len(u.FaceVector) > 0
}

// ValidateUserID accepts the ObjectID hex form user identifiers have always used.
func ValidateUserID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

// Vector stores a feature vector as little-endian IEEE 754 float32 samples without
// a length prefix.
type Vector face.FeatureVector

// GormDataType maps the column to bytea/blob.
func (Vector) GormDataType() string {
	return "bytes"
}

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	var b []byte
	switch s := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		b = s
	case string:
		b = []byte(s)
	default:
		return fmt.Errorf("repository: cannot scan %T into Vector", src)
	}
	if len(b)%4 != 0 {
		return fmt.Errorf("repository: vector blob length %d is not a multiple of 4", len(b))
	}
	out := make(Vector, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	*v = out
	return nil
}
