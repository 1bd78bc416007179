package server

// Request and response shapes for the podcast API.

type TranscribeRequest struct {
	EpisodeURL   string `json:"episodeUrl"`
	Mode         string `json:"mode"`
	EpisodeTitle string `json:"episodeTitle"`
	UserID       string `json:"userId"`
}

type UserIDRequest struct {
	UserID string `json:"userId"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type TranscriptSearchRequest struct {
	EpisodeURL string `json:"episodeUrl"`
	Mode       string `json:"mode"`
	UserID     string `json:"userId"`
}

type TranscriptSearchResponse struct {
	Transcript bool   `json:"transcript"`
	EpisodeID  string `json:"episodeId,omitempty"`
	Message    string `json:"message"`
}

type UserQueryRequest struct {
	Query     string `json:"query"`
	Mode      string `json:"mode"`
	EpisodeID string `json:"episodeId"`
	UserID    string `json:"userId"`
}

type UserQueryResponse struct {
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

type DownloadTranscriptResponse struct {
	Transcription string `json:"transcription"`
}

type PodcastSearchRequest struct {
	Term string `json:"term"`
}

type PodcastResult struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Author string `json:"author,omitempty"`
	Image  string `json:"image,omitempty"`
}

type EpisodeSearchRequest struct {
	URL string `json:"url"`
}

type EpisodeResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int    `json:"duration,omitempty"`
}
