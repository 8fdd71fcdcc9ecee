package google

import (
	"context"
	"fmt"
	"time"

	"social-ops/domain/model"
	"social-ops/domain/repository"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Config represents the Google OAuth client configuration.
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
}

// Client implements IGoogleOAuth against the real Google endpoints.
type Client struct {
	oauth2Config *oauth2.Config
}

// NewGoogleClient creates a client requesting YouTube plus identity scopes.
func NewGoogleClient(config *Config) (repository.IGoogleOAuth, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth client not configured")
	}
	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeScope,
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
		},
		Endpoint: googleoauth.Endpoint,
	}
	return &Client{oauth2Config: oauth2Config}, nil
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*repository.TokenBundle, error) {
	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return bundleFromToken(token), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*repository.TokenBundle, error) {
	src := c.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	b := bundleFromToken(token)
	// Provider may omit the refresh token on refresh; keep ours in that case
	if b.RefreshToken == "" {
		b.RefreshToken = refreshToken
	}
	return b, nil
}

func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*model.GoogleIdentity, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(staticToken(accessToken)))
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google identity: %w", err)
	}
	return &model.GoogleIdentity{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}

func (c *Client) ListMyChannels(ctx context.Context, accessToken string) ([]model.Channel, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(staticToken(accessToken)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	resp, err := svc.Channels.List([]string{"id", "snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	channels := make([]model.Channel, 0, len(resp.Items))
	for _, item := range resp.Items {
		channels = append(channels, channelFromItem(item))
	}
	return channels, nil
}

func (c *Client) GetChannel(ctx context.Context, accessToken, channelID string) (*model.Channel, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(staticToken(accessToken)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	resp, err := svc.Channels.List([]string{"id", "snippet", "statistics"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	ch := channelFromItem(resp.Items[0])
	return &ch, nil
}

func (c *Client) SetVideoPrivacy(ctx context.Context, accessToken, videoID, privacy string) error {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(staticToken(accessToken)))
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}
	video := &youtube.Video{
		Id:     videoID,
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}
	if _, err := svc.Videos.Update([]string{"status"}, video).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update video %s privacy: %w", videoID, err)
	}
	return nil
}

func staticToken(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func bundleFromToken(token *oauth2.Token) *repository.TokenBundle {
	b := &repository.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		b.Expiry = &expiry
	}
	return b
}

func channelFromItem(item *youtube.Channel) model.Channel {
	ch := model.Channel{ID: item.Id, URL: fmt.Sprintf("https://www.youtube.com/channel/%s", item.Id)}
	if item.Snippet != nil {
		ch.Title = item.Snippet.Title
		if item.Snippet.CustomUrl != "" {
			ch.URL = fmt.Sprintf("https://www.youtube.com/%s", item.Snippet.CustomUrl)
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Default != nil {
			ch.ThumbnailURL = item.Snippet.Thumbnails.Default.Url
		}
	}
	if item.Statistics != nil {
		ch.SubscriberCount = item.Statistics.SubscriberCount
		ch.VideoCount = item.Statistics.VideoCount
		ch.ViewCount = item.Statistics.ViewCount
	}
	return ch
}

// StatsSnapshot builds the metadata blob stored on an account.
func StatsSnapshot(ch *model.Channel) model.ChannelStats {
	return model.ChannelStats{
		SubscriberCount: ch.SubscriberCount,
		VideoCount:      ch.VideoCount,
		ViewCount:       ch.ViewCount,
		FetchedAt:       time.Now().UTC(),
	}
}
