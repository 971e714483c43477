package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ykihara/commentguard/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("value cannot be empty")
	ErrNilComment   = errors.New("comment cannot be nil")
	ErrInvalidScore = errors.New("toxicity score outside [0,100]")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, name)
	}
	return nil
}

func validateComment(c *model.Comment) error {
	if c == nil {
		return ErrNilComment
	}
	if err := validateString(c.ID, "comment ID"); err != nil {
		return err
	}
	if err := validateString(c.VideoID, "video ID"); err != nil {
		return err
	}
	if !c.Category.Valid() {
		return fmt.Errorf("invalid category: %q", c.Category)
	}
	if c.ToxicityScore < 0 || c.ToxicityScore > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidScore, c.ToxicityScore)
	}
	return nil
}
