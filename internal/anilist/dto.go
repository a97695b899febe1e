package anilist

// mediaQuery looks up one anime by name
const mediaQuery = `query ($search: String) {
  Media (search: $search, type: ANIME) {
    id
    title { romaji english native }
    description
    genres
    bannerImage
    coverImage { large }
    studios { edges { isMain node { name } } }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type queryResponse struct {
	Data struct {
		Media *mediaDTO `json:"Media"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type mediaDTO struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	BannerImage string   `json:"bannerImage"`
	CoverImage  struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	Studios struct {
		Edges []studioEdge `json:"edges"`
	} `json:"studios"`
}

type studioEdge struct {
	IsMain bool `json:"isMain"`
	Node   struct {
		Name string `json:"name"`
	} `json:"node"`
}

// imageURL prefers the banner and falls back to the cover
func (m *mediaDTO) imageURL() string {
	if m.BannerImage != "" {
		return m.BannerImage
	}
	return m.CoverImage.Large
}
