package sources

import (
	"errors"
	"fmt"
)

// StructuralParseError reports that a page is missing a field the extractor
// cannot work without, usually a sign the layout changed or the resource
// does not exist.
type StructuralParseError struct {
	SourceKey string
	Field     string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("%s: page missing required %s", e.SourceKey, e.Field)
}

// IdentifierResolutionError reports that a novel's detail page parsed but
// yielded no internal identifier, so the chapter API cannot be queried.
type IdentifierResolutionError struct {
	SourceKey string
	NovelPath string
}

func (e *IdentifierResolutionError) Error() string {
	return fmt.Sprintf("%s: no identifier recoverable for %s", e.SourceKey, e.NovelPath)
}

// UpstreamAPIError reports a non-success status from a site's secondary API.
type UpstreamAPIError struct {
	SourceKey  string
	StatusCode int
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("%s: upstream api returned status %d", e.SourceKey, e.StatusCode)
}

func IsStructuralParse(err error) bool {
	var target *StructuralParseError
	return errors.As(err, &target)
}

func IsIdentifierResolution(err error) bool {
	var target *IdentifierResolutionError
	return errors.As(err, &target)
}

func AsUpstreamAPI(err error) (*UpstreamAPIError, bool) {
	var target *UpstreamAPIError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
