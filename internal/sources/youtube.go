package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
	"github.com/postveille/curator/internal/normalize"
)

const transcriptMaxChars = 8000

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|youtu\.be/|/embed/|/shorts/)([A-Za-z0-9_-]{11})`),
}

// YouTubeSource fetches video transcripts for configured videos. Transcript
// retrieval tries an ordered chain of strategies and keeps the first that
// succeeds.
type YouTubeSource struct {
	videos     []config.VideoSource
	serviceURL string // optional remote transcript service, tried first
	client     *resty.Client
}

// transcriptFetcher is one strategy in the fallback chain.
type transcriptFetcher struct {
	name  string
	fetch func(ctx context.Context, videoID string) (string, error)
}

// NewYouTubeSource creates the transcript collector.
func NewYouTubeSource(videos []config.VideoSource, serviceURL string) *YouTubeSource {
	return &YouTubeSource{
		videos:     videos,
		serviceURL: serviceURL,
		client: resty.New().
			SetTimeout(45 * time.Second).
			SetHeader("User-Agent", "post-veille-curator/1.0"),
	}
}

func (y *YouTubeSource) Name() string { return "youtube" }

func (y *YouTubeSource) Enabled() bool { return len(y.videos) > 0 }

func (y *YouTubeSource) Collect(ctx context.Context) ([]models.Item, error) {
	var all []models.Item

	for _, video := range y.videos {
		if !video.IsEnabled() {
			continue
		}

		videoID := extractVideoID(video.URL)
		if videoID == "" {
			logrus.Warnf("Cannot extract video id from %s", video.URL)
			continue
		}

		transcript, strategy, err := y.fetchTranscript(ctx, videoID)
		if err != nil {
			logrus.Warnf("Transcript for %s unavailable: %v", video.Name, err)
			continue
		}
		logrus.Infof("YouTube %s: transcript via %s (%d chars)", video.Name, strategy, len(transcript))

		if len(transcript) > transcriptMaxChars {
			transcript = transcript[:transcriptMaxChars]
		}

		all = append(all, normalize.Item(normalize.Payload{
			URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
			Title:   video.Name,
			Content: transcript,
		}, normalize.SourceMeta{Name: video.Name, Type: "youtube", Category: "community"}))
	}

	return all, nil
}

// fetchTranscript walks the strategy chain in order and returns the first
// non-empty transcript.
func (y *YouTubeSource) fetchTranscript(ctx context.Context, videoID string) (string, string, error) {
	chain := []transcriptFetcher{}
	if y.serviceURL != "" {
		chain = append(chain, transcriptFetcher{name: "remote-service", fetch: y.fetchViaService})
	}
	chain = append(chain,
		transcriptFetcher{name: "timedtext-en", fetch: timedTextFetcher(y.client, "en")},
		transcriptFetcher{name: "timedtext-fr", fetch: timedTextFetcher(y.client, "fr")},
	)

	var lastErr error
	for _, strategy := range chain {
		transcript, err := strategy.fetch(ctx, videoID)
		if err != nil {
			logrus.Debugf("Transcript strategy %s failed for %s: %v", strategy.name, videoID, err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(transcript) != "" {
			return transcript, strategy.name, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no transcript available")
	}
	return "", "", lastErr
}

func (y *YouTubeSource) fetchViaService(ctx context.Context, videoID string) (string, error) {
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParam("video_id", videoID).
		Get(y.serviceURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("transcript service returned status %d", resp.StatusCode())
	}

	var payload struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", err
	}
	return payload.Transcript, nil
}

type timedTextResponse struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func timedTextFetcher(client *resty.Client, lang string) func(ctx context.Context, videoID string) (string, error) {
	return func(ctx context.Context, videoID string) (string, error) {
		endpoint := fmt.Sprintf(
			"https://www.youtube.com/api/timedtext?v=%s&lang=%s",
			url.QueryEscape(videoID), lang,
		)

		resp, err := client.R().SetContext(ctx).Get(endpoint)
		if err != nil {
			return "", err
		}
		if resp.StatusCode() != 200 {
			return "", fmt.Errorf("timedtext returned status %d", resp.StatusCode())
		}

		var parsed timedTextResponse
		if err := xml.Unmarshal(resp.Body(), &parsed); err != nil {
			return "", err
		}

		var parts []string
		for _, text := range parsed.Texts {
			if v := strings.TrimSpace(text.Value); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " "), nil
	}
}

func extractVideoID(videoURL string) string {
	for _, pattern := range videoIDPatterns {
		if match := pattern.FindStringSubmatch(videoURL); len(match) == 2 {
			return match[1]
		}
	}
	// A bare 11-character id is accepted as-is.
	if regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`).MatchString(videoURL) {
		return videoURL
	}
	return ""
}
