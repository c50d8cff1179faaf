package domain

import (
	"errors"
	"fmt"
	"strconv"
)

const VariantKeyOriginal = "original"

// Version is a requested derivative identified by its target height.
// A nil *Version stands for the original, unresized derivative.
type Version struct {
	Height int `json:"height" mapstructure:"height"`
}

func (v Version) Validate() error {
	if v.Height <= 0 {
		return fmt.Errorf("version height must be > 0, got %d", v.Height)
	}
	return nil
}

// Key is the result-map key of the variant.
func (v Version) Key() string {
	return strconv.Itoa(v.Height)
}

// VariantKey returns "original" for a nil version and the stringified height otherwise.
func VariantKey(v *Version) string {
	if v == nil {
		return VariantKeyOriginal
	}
	return v.Key()
}

// ParseVersions builds versions from raw heights. Duplicates are kept; they
// resolve to the same output file.
func ParseVersions(heights []int) ([]Version, error) {
	out := make([]Version, 0, len(heights))
	for i, h := range heights {
		v := Version{Height: h}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("versions[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ProcessingResult maps a variant key to the derived output base name.
type ProcessingResult map[string]string

// DirectoryResult maps a source file name to its processing result.
type DirectoryResult map[string]ProcessingResult

var ErrEmptyResult = errors.New("processing result has no original variant")

// Validate checks that the result carries the original plus one key per distinct version.
func (r ProcessingResult) Validate(versions []Version) error {
	if _, ok := r[VariantKeyOriginal]; !ok {
		return ErrEmptyResult
	}
	for _, v := range versions {
		if _, ok := r[v.Key()]; !ok {
			return fmt.Errorf("processing result is missing variant %s", v.Key())
		}
	}
	return nil
}
