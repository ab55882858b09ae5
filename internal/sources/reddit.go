package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
)

// RedditSource pulls top posts from configured subreddits.
type RedditSource struct {
	clientID     string
	clientSecret string
	subreddits   []string
	maxPosts     int
	client       *resty.Client
	accessToken  string
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
}

// NewRedditSource creates the Reddit collector.
func NewRedditSource(clientID, clientSecret string, cfg config.RedditSources) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   cfg.Subreddits,
		maxPosts:     cfg.MaxPosts,
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

func (r *RedditSource) Name() string { return "reddit" }

func (r *RedditSource) Enabled() bool {
	return r.clientID != "" && r.clientSecret != "" && len(r.subreddits) > 0
}

func (r *RedditSource) Collect(ctx context.Context) ([]models.Item, error) {
	if !r.Enabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	var all []models.Item
	for _, subreddit := range r.subreddits {
		items, err := r.collectSubreddit(ctx, subreddit)
		if err != nil {
			logrus.Warnf("Subreddit r/%s failed: %v", subreddit, err)
			continue
		}
		all = append(all, items...)
	}

	return all, nil
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", "post-veille-curator/1.0").
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post("https://www.reddit.com/api/v1/access_token")
	if err != nil {
		return err
	}

	var auth redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return err
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("no access token in response")
	}

	r.accessToken = auth.AccessToken
	return nil
}

func (r *RedditSource) collectSubreddit(ctx context.Context, subreddit string) ([]models.Item, error) {
	url := fmt.Sprintf("https://oauth.reddit.com/r/%s/top.json?t=day&limit=%d", subreddit, r.maxPosts)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetHeader("User-Agent", "post-veille-curator/1.0").
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, err
	}

	meta := normalize.SourceMeta{
		Name:     fmt.Sprintf("Reddit r/%s", subreddit),
		Type:     "reddit",
		Category: "community",
	}

	var items []models.Item
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || post.Title == "" {
			continue
		}

		score := post.Score
		numComments := post.NumComments

		items = append(items, normalize.Item(normalize.Payload{
			URL:         fmt.Sprintf("https://reddit.com%s", post.Permalink),
			Title:       post.Title,
			Content:     post.Selftext,
			PublishedAt: time.Unix(int64(post.Created), 0).UTC().Format(time.RFC3339),
			Author:      post.Author,
			Score:       &score,
			NumComments: &numComments,
		}, meta))
	}

	logrus.Infof("Reddit r/%s: %d items", subreddit, len(items))
	return items, nil
}
