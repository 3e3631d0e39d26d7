package product

import (
	"fmt"
	"strings"
)

// ValidationError describes a malformed create payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Input holds the client-supplied fields of a new product submission.
type Input struct {
	Title       string
	Description string
	ImageURLs   []string
	ProductURL  string
	Price       string
}

// Normalize trims every field, drops blank image URLs and validates the
// result. The returned Input is safe to persist.
func (in Input) Normalize() (Input, error) {
	out := Input{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ProductURL:  strings.TrimSpace(in.ProductURL),
		Price:       strings.TrimSpace(in.Price),
	}
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			out.ImageURLs = append(out.ImageURLs, u)
		}
	}

	switch {
	case out.Title == "":
		return Input{}, &ValidationError{Field: "title", Reason: "is required"}
	case out.ProductURL == "":
		return Input{}, &ValidationError{Field: "productUrl", Reason: "is required"}
	case out.Price == "":
		return Input{}, &ValidationError{Field: "price", Reason: "is required"}
	case len(out.ImageURLs) == 0:
		return Input{}, &ValidationError{Field: "imageUrls", Reason: "at least one image URL is required"}
	}

	if _, err := ParsePrice(out.Price); err != nil {
		return Input{}, &ValidationError{Field: "price", Reason: err.Error()}
	}
	return out, nil
}
