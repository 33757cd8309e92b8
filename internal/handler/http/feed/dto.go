package feed

import (
	"time"

	"pagefeed/internal/domain/entity"
)

// ArticleDTO is the JSON shape of one article in /preview and /metadata
// responses.
type ArticleDTO struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	GUID        string    `json:"guid,omitempty"`
}

func toArticleDTOs(articles []entity.Article) []ArticleDTO {
	out := make([]ArticleDTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, ArticleDTO{
			Title:       a.Title,
			Link:        a.Link,
			Description: a.Description,
			Author:      a.Author,
			Category:    a.Category,
			Image:       a.Image,
			PublishedAt: a.PublishedAt,
			GUID:        a.GUID,
		})
	}
	return out
}

// PreviewResponse is the /preview JSON body.
type PreviewResponse struct {
	URL      string       `json:"url"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	Total    int          `json:"total"`
	Articles []ArticleDTO `json:"articles"`
}

// MetadataResponse is the /metadata JSON body.
type MetadataResponse struct {
	URL          string       `json:"url"`
	Domain       string       `json:"domain"`
	FeedURL      string       `json:"feedUrl,omitempty"`
	Strategy     string       `json:"strategy,omitempty"`
	ArticleCount int          `json:"articleCount"`
	Samples      []ArticleDTO `json:"samples"`
}

// ValidateRequest is the /validate JSON request body.
type ValidateRequest struct {
	URL string `json:"url"`
}
