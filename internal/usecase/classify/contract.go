package classify

import "context"

// Classifier resolves free text to a canonical category via an external model.
// An empty category with a nil error means the model confidently found no fit.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
	Model() string
}
