package homie

import "fmt"

// ValidateID checks id against the Homie identifier grammar: one or more
// lowercase letters, digits or hyphens, neither starting nor ending with a
// hyphen.
//
// Returns:
//   - error: ErrInvalidID wrapped with the offending id, or nil
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if id[0] == '-' || id[len(id)-1] == '-' {
		return fmt.Errorf("%w: %q may not begin or end with '-'", ErrInvalidID, id)
	}

	for i := 0; i < len(id); i++ {
		b := id[i]
		if (b < 'a' || b > 'z') && (b < '0' || b > '9') && b != '-' {
			return fmt.Errorf("%w: invalid character %q in %q", ErrInvalidID, b, id)
		}
	}

	return nil
}
