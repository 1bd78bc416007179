package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/heaversm/podquest/internal/directory"
	"github.com/heaversm/podquest/internal/pipeline"
	"github.com/heaversm/podquest/internal/query"
	"github.com/heaversm/podquest/internal/session"
)

const directorySearchMax = 10

// PodcastHandler exposes the transcription and query API.
type PodcastHandler struct {
	Pipeline   *pipeline.Pipeline
	Dispatcher *query.Dispatcher
	Registry   *session.Registry
	Directory  *directory.Client
}

func (h *PodcastHandler) Register(g *echo.Group) {
	g.POST("/transcribeEpisode", h.transcribeEpisode)
	g.POST("/getStatus", h.getStatus)
	g.POST("/searchForTranscript", h.searchForTranscript)
	g.POST("/performUserQuery", h.performUserQuery)
	g.POST("/resetUserLLM", h.resetUserLLM)
	g.POST("/downloadTranscript", h.downloadTranscript)
	g.POST("/searchForPodcast", h.searchForPodcast)
	g.POST("/searchForEpisodes", h.searchForEpisodes)
}

// transcribeEpisode kicks off the pipeline in the background and returns
// immediately; clients follow progress through getStatus.
func (h *PodcastHandler) transcribeEpisode(c echo.Context) error {
	var req TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EpisodeURL == "" || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "episodeUrl and userId required")
	}
	if err := h.Pipeline.Begin(pipeline.Request{
		UserID: req.UserID,
		URL:    req.EpisodeURL,
		Title:  req.EpisodeTitle,
		Mode:   req.Mode,
	}); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "transcription started"})
}

// getStatus reports the session's lifecycle label. 200 once the session is
// ready, 202 while a pipeline run is (or should be) in flight. A failed run
// keeps its stage label and surfaces the error alongside it. Polls for ids
// with no session answer "not ready" without allocating one.
func (h *PodcastHandler) getStatus(c echo.Context) error {
	var req UserIDRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId required")
	}
	sess, err := h.Registry.Get(req.UserID)
	if err != nil {
		return c.JSON(http.StatusAccepted, StatusResponse{Status: session.StatusNotReady})
	}
	status, lastErr := sess.Status()
	resp := StatusResponse{Status: status}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	code := http.StatusAccepted
	if status == session.StatusReady {
		code = http.StatusOK
	}
	return c.JSON(code, resp)
}

// searchForTranscript checks whether an episode was already transcribed, so
// clients can skip the expensive pipeline. When a userId is supplied and a
// transcript exists, the engine build starts right away.
func (h *PodcastHandler) searchForTranscript(c echo.Context) error {
	var req TranscriptSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EpisodeURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "episodeUrl required")
	}
	ep, found, err := h.Pipeline.FindEpisode(c.Request().Context(), req.EpisodeURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found || ep.Transcript == "" {
		return c.JSON(http.StatusOK, TranscriptSearchResponse{Transcript: false, Message: "no transcript found"})
	}
	message := "transcript found"
	if req.UserID != "" {
		// skip the download and transcription stages entirely; the run
		// picks up the stored transcript and only builds the engine
		if err := h.Pipeline.Begin(pipeline.Request{
			UserID: req.UserID,
			URL:    req.EpisodeURL,
			Title:  ep.Title,
			Mode:   req.Mode,
		}); err != nil {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		message = "transcript found, establishing llm"
	}
	return c.JSON(http.StatusOK, TranscriptSearchResponse{
		Transcript: true,
		EpisodeID:  ep.ID,
		Message:    message,
	})
}

// performUserQuery answers one query against the user's ready session.
func (h *PodcastHandler) performUserQuery(c echo.Context) error {
	var req UserQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" || req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId and query required")
	}
	res, err := h.Dispatcher.Dispatch(c.Request().Context(), req.UserID, req.Mode, req.Query)
	if err != nil {
		var notFound *session.NotFoundError
		if errors.As(err, &notFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		var notReady *session.NotReadyError
		if errors.As(err, &notReady) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, UserQueryResponse{Text: res.Text, IsCorrect: res.IsCorrect})
}

// resetUserLLM drops the user's session state so a new episode can be loaded
// under the same user id.
func (h *PodcastHandler) resetUserLLM(c echo.Context) error {
	var req UserIDRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId required")
	}
	sess := h.Registry.Reset(req.UserID)
	status, _ := sess.Status()
	return c.JSON(http.StatusOK, StatusResponse{Status: status})
}

// downloadTranscript returns the session's raw transcript.
func (h *PodcastHandler) downloadTranscript(c echo.Context) error {
	var req UserIDRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId required")
	}
	sess, err := h.Registry.Get(req.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	transcript := sess.Transcript()
	if transcript == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no transcript available")
	}
	return c.JSON(http.StatusOK, DownloadTranscriptResponse{Transcription: transcript})
}

// searchForPodcast finds podcasts in the directory by search term.
func (h *PodcastHandler) searchForPodcast(c echo.Context) error {
	var req PodcastSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term required")
	}
	if !h.Directory.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "podcast directory not configured")
	}
	feeds, err := h.Directory.SearchPodcasts(c.Request().Context(), req.Term, directorySearchMax)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	out := make([]PodcastResult, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, PodcastResult{Title: f.Title, URL: f.FeedURL, Author: f.Author, Image: f.Image})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"podcasts": out})
}

// searchForEpisodes lists recent episodes of a feed, including the audio
// enclosure URL that transcribeEpisode consumes.
func (h *PodcastHandler) searchForEpisodes(c echo.Context) error {
	var req EpisodeSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	if !h.Directory.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "podcast directory not configured")
	}
	items, err := h.Directory.EpisodesByFeedURL(c.Request().Context(), req.URL, directorySearchMax)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	out := make([]EpisodeResult, 0, len(items))
	for _, ep := range items {
		out = append(out, EpisodeResult{Title: ep.Title, URL: ep.EnclosureURL, Duration: ep.Duration})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"episodes": out})
}
