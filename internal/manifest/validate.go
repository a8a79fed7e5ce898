package manifest

import (
	"context"
	"errors"
	"fmt"
)

// ContentSource supplies input content by path and digest.
type ContentSource interface {
	Contents(ctx context.Context, path, digest string) ([]byte, error)
}

// Validate checks that u is self-consistent against src: every required
// input has a digest whose content is present and matches, and every source
// file is a required input. All problems are reported together.
func Validate(ctx context.Context, u *Unit, src ContentSource) error {
	var errs []error
	seen := make(map[string]bool, len(u.RequiredInputs))
	for _, in := range u.RequiredInputs {
		p := in.Info.Path
		if p == "" {
			errs = append(errs, errors.New("required input with empty path"))
			continue
		}
		abs := u.AbsPath(p)
		if seen[abs] {
			errs = append(errs, fmt.Errorf("duplicate required input %s", p))
		}
		seen[abs] = true
		if in.Info.Digest == "" {
			errs = append(errs, fmt.Errorf("required input %s has no digest", p))
			continue
		}
		data, err := src.Contents(ctx, p, in.Info.Digest)
		if err != nil {
			errs = append(errs, fmt.Errorf("required input %s: %w", p, err))
			continue
		}
		if got := ContentDigest(data); got != in.Info.Digest {
			errs = append(errs, fmt.Errorf("required input %s: digest mismatch: have %s, want %s", p, got, in.Info.Digest))
		}
	}
	for _, sf := range u.SourceFiles {
		if !seen[u.AbsPath(sf)] {
			errs = append(errs, fmt.Errorf("source file %s is not a required input", sf))
		}
	}
	return errors.Join(errs...)
}
