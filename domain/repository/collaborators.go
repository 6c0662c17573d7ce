package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// IContentGenerator is the external script/content collaborator. The avoid
// list carries titles already rejected by the duplicate guard this cycle.
type IContentGenerator interface {
	Generate(ctx context.Context, theme string, avoid []string) (*model.GeneratedContent, error)
}

// IRenderer turns a script body into a publishable artifact and returns its
// handle. Treated as one opaque, possibly slow, call.
type IRenderer interface {
	Render(ctx context.Context, body string) (string, error)
}

// IPublisher is the external publish platform boundary.
type IPublisher interface {
	Publish(ctx context.Context, artifact, title string, cred *model.Credential) (string, error)
	// RefreshCredential renews the access token using the refresh token. The
	// returned credential carries the old refresh token when the provider
	// does not rotate it.
	RefreshCredential(ctx context.Context, cred *model.Credential) (*model.Credential, error)
}
