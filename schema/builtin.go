package schema

import "github.com/pkg/errors"

// Built-in schemas for the common Galaxy Zoo campaigns. Reduced to the
// questions every campaign shares; use a schema file for the full
// ortho trees.

// GZ2 returns the core Galaxy Zoo 2 decision tree.
func GZ2() *Schema {
	s, err := New([]Question{
		{Name: "smooth-or-featured", Answers: []string{"smooth", "featured-or-disk", "artifact"}},
		{Name: "disk-edge-on", Answers: []string{"yes", "no"}},
		{Name: "has-spiral-arms", Answers: []string{"yes", "no"}},
		{Name: "bar", Answers: []string{"yes", "no"}},
		{Name: "bulge-size", Answers: []string{"dominant", "obvious", "just-noticeable", "no"}},
		{Name: "something-odd", Answers: []string{"yes", "no"}},
		{Name: "how-rounded", Answers: []string{"round", "in-between", "cigar"}},
	})
	if err != nil {
		panic(err) // static definition, cannot fail
	}
	return s
}

// SmoothOrFeatured returns the binary smooth-vs-featured schema, the
// one shape for which classification accuracy is reported.
func SmoothOrFeatured() *Schema {
	s, err := New([]Question{
		{Name: "smooth-or-featured", Answers: []string{"smooth", "featured-or-disk"}},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// ByName resolves a built-in schema identifier.
func ByName(name string) (*Schema, error) {
	switch name {
	case "gz2":
		return GZ2(), nil
	case "smooth-or-featured":
		return SmoothOrFeatured(), nil
	default:
		return nil, errors.Errorf("schema: no built-in schema named %q", name)
	}
}
