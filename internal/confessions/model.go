package confessions

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	maxIdentifierLength = 190
	maxBodyLength       = 4000
	maxNameLength       = 120
	maxCityLength       = 120

	// AnonymousName is the display fallback when a submission carries no name.
	AnonymousName = "Anonymous"
)

var (
	// ErrInvalidConfessionID indicates that a confession identifier is empty or exceeds storage bounds.
	ErrInvalidConfessionID = errors.New("confessions: invalid confession id")
	// ErrEmptyBody indicates that the confession text is missing or whitespace only.
	ErrEmptyBody = errors.New("confessions: confession text is required")
	// ErrBodyTooLong indicates that the confession text exceeds storage bounds.
	ErrBodyTooLong = errors.New("confessions: confession text too long")
	// ErrInvalidAge indicates that a supplied age is not a positive integer.
	ErrInvalidAge = errors.New("confessions: invalid age")
	// ErrInvalidImage indicates that a supplied image payload is not valid base64.
	ErrInvalidImage = errors.New("confessions: image payload is not valid base64")
	// ErrFieldTooLong indicates that an optional text field exceeds storage bounds.
	ErrFieldTooLong = errors.New("confessions: field too long")
)

// ConfessionID represents a validated confession identifier.
type ConfessionID string

// NewConfessionID validates raw input and returns a ConfessionID.
func NewConfessionID(rawInput string) (ConfessionID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidConfessionID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidConfessionID, maxIdentifierLength)
	}
	return ConfessionID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ConfessionID) String() string {
	return string(id)
}

// Confession models the persisted confession record.
type Confession struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	Name             string `gorm:"column:name;size:120"`
	Age              *int   `gorm:"column:age"`
	City             string `gorm:"column:city;size:120"`
	Body             string `gorm:"column:confession;type:text;not null"`
	ImageB64         string `gorm:"column:image;type:text"`
	CreatedAtSeconds int64  `gorm:"column:date;not null;index:idx_confessions_date"`
	Likes            int64  `gorm:"column:likes;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Confession) TableName() string {
	return "confessions"
}

// DisplayName returns the submitted name or the anonymous fallback.
func (c Confession) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return AnonymousName
	}
	return c.Name
}

// Draft carries the client-supplied fields of a new confession.
// Body is the only required field; everything else may be absent.
type Draft struct {
	Name     string
	Age      *int
	City     string
	Body     string
	ImageB64 string
}

// NewDraft validates client input and returns a normalized Draft.
func NewDraft(name string, age *int, city, body, imageB64 string) (Draft, error) {
	trimmedBody := strings.TrimSpace(body)
	if trimmedBody == "" {
		return Draft{}, ErrEmptyBody
	}
	if len(trimmedBody) > maxBodyLength {
		return Draft{}, fmt.Errorf("%w: exceeds %d characters", ErrBodyTooLong, maxBodyLength)
	}

	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) > maxNameLength {
		return Draft{}, fmt.Errorf("%w: name exceeds %d characters", ErrFieldTooLong, maxNameLength)
	}
	trimmedCity := strings.TrimSpace(city)
	if len(trimmedCity) > maxCityLength {
		return Draft{}, fmt.Errorf("%w: city exceeds %d characters", ErrFieldTooLong, maxCityLength)
	}

	if age != nil && *age <= 0 {
		return Draft{}, fmt.Errorf("%w: %d", ErrInvalidAge, *age)
	}

	trimmedImage := strings.TrimSpace(imageB64)
	if trimmedImage != "" {
		if _, err := base64.StdEncoding.DecodeString(trimmedImage); err != nil {
			return Draft{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}

	return Draft{
		Name:     trimmedName,
		Age:      age,
		City:     trimmedCity,
		Body:     trimmedBody,
		ImageB64: trimmedImage,
	}, nil
}
