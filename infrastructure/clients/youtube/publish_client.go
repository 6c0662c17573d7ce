package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/configuration"
	"video-autopilot/infrastructure/logger"
)

// PublishClient uploads rendered artifacts to YouTube and renews OAuth
// credentials. One client serves the whole fleet; per-channel tokens arrive
// with each call.
type PublishClient struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

func NewPublishClient(cfg *configuration.YouTubeConfig) *PublishClient {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeForceSslScope}
	}
	return &PublishClient{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// OAuthConfig exposes the underlying OAuth client for the consent flow.
func (c *PublishClient) OAuthConfig() *oauth2.Config { return c.oauthConfig }

// Publish downloads the rendered artifact and uploads it as an unlisted
// short. Returns the YouTube video ID.
func (c *PublishClient) Publish(ctx context.Context, artifact, title string, cred *model.Credential) (string, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.Expiry,
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(c.oauthConfig.Client(ctx, token)))
	if err != nil {
		return "", classify(err)
	}

	resp, err := c.httpClient.Get(artifact)
	if err != nil {
		return "", model.Transient(fmt.Errorf("fetch artifact: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", model.Permanent(fmt.Errorf("fetch artifact: status %d", resp.StatusCode))
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:      title,
			CategoryId: "22",
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	})
	video, err := call.Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}

	logger.GetLogger().
		WithField("videoId", video.Id).
		WithField("channelId", cred.ChannelID).
		Info("Video published")
	return video.Id, nil
}

// RefreshCredential exchanges the refresh token for a new access token. The
// old refresh token is kept when the provider does not rotate it.
func (c *PublishClient) RefreshCredential(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	source := c.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, classifyRefresh(err)
	}

	renewed := &model.Credential{
		ChannelID:    cred.ChannelID,
		Provider:     cred.Provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = cred.RefreshToken
	}
	return renewed, nil
}

// classify maps YouTube API errors onto the error kinds the core acts on.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded"):
			return model.QuotaErr("youtube", err)
		case apiErr.Code == http.StatusUnauthorized:
			return model.AuthErr(err)
		case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "authError", "forbidden"):
			return model.AuthErr(err)
		case apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests:
			return model.Transient(err)
		default:
			return model.Permanent(err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.Transient(err)
	}
	return model.Transient(err)
}

func classifyRefresh(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		// invalid_grant means the refresh token was revoked or expired;
		// retrying cannot fix it.
		if retrieveErr.ErrorCode == "invalid_grant" ||
			retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return model.AuthErr(err)
		}
	}
	return model.Transient(err)
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, reason := range reasons {
			if strings.EqualFold(item.Reason, reason) {
				return true
			}
		}
	}
	return false
}
