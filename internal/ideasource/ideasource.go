// Package ideasource is the external, read-only idea-retrieval interface
// the Stage Dispatcher calls once per step whenever a Processor declares a
// need for idea_body. It is a plain key-value lookup -- the core caches
// nothing and treats the idea record as opaque, external data.
package ideasource

import (
	"context"
	"errors"
)

// ErrIdeaNotFound is returned when idea_ref has no corresponding record.
var ErrIdeaNotFound = errors.New("ideasource: idea not found")

// IdeaBody is the opaque payload describing the originating idea. Only
// Text is modeled here since the core treats its internal shape as
// external data; a real deployment may carry richer fields.
type IdeaBody struct {
	IdeaRef string
	Text    string
}

// IdeaSource is satisfied by anything that can resolve an idea_ref to its
// body. Implementations must be safe for concurrent use.
type IdeaSource interface {
	GetIdea(ctx context.Context, ideaRef string) (IdeaBody, error)
}
