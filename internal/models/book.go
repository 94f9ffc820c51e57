package models

// Book is the normalized book record used throughout the application.
// It is derived once from a provider payload at fetch time and treated
// as immutable afterwards. The ID is the provider's volume identifier;
// there is no deduplication across providers.
type Book struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle,omitempty"`
	Authors        []string `json:"authors"`
	Publisher      string   `json:"publisher,omitempty"`
	PublishedDate  string   `json:"publishedDate,omitempty"`
	Description    string   `json:"description,omitempty"`
	PageCount      int      `json:"pageCount,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	AverageRating  float64  `json:"averageRating,omitempty"`
	RatingsCount   int      `json:"ratingsCount,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	SmallThumbnail string   `json:"smallThumbnail,omitempty"`
	Language       string   `json:"language,omitempty"`
	PreviewLink    string   `json:"previewLink,omitempty"`
	InfoLink       string   `json:"infoLink,omitempty"`
	ISBN10         string   `json:"isbn10,omitempty"`
	ISBN13         string   `json:"isbn13,omitempty"`
}
