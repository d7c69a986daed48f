package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
)

// API exposes the game operations over JSON.
type API struct {
	service *app.GameService
}

func NewAPI(service *app.GameService) *API {
	return &API{service: service}
}

type joinRequest struct {
	UserID string `json:"userId"`
}

type answerRequest struct {
	UserID         string `json:"userId"`
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

// Register mounts the API routes on r.
func (a *API) Register(r gin.IRouter) {
	games := r.Group("/api/games")
	games.POST("", a.createGame)
	games.GET("/:id", a.getGame)
	games.POST("/:id/join", a.joinGame)
	games.POST("/:id/start", a.startGame)
	games.POST("/:id/next", a.nextQuestion)
	games.POST("/:id/end", a.endGame)
	games.POST("/:id/answers", a.submitAnswer)

	r.GET("/api/users/:id/stats", a.userStats)
}

func (a *API) createGame(c *gin.Context) {
	var cfg domain.GameConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	game, err := a.service.CreateGame(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

func (a *API) getGame(c *gin.Context) {
	details, err := a.service.GetGameWithDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (a *API) joinGame(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	participant, err := a.service.JoinGame(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (a *API) startGame(c *gin.Context) {
	game, err := a.service.StartGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (a *API) nextQuestion(c *gin.Context) {
	question, err := a.service.NextQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (a *API) endGame(c *gin.Context) {
	game, err := a.service.EndGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (a *API) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := a.service.SubmitAnswer(c.Request.Context(), c.Param("id"), req.UserID, domain.AnswerSubmission{
		QuestionID:     req.QuestionID,
		SelectedAnswer: req.SelectedAnswer,
		TimeSpent:      req.TimeSpent,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) userStats(c *gin.Context) {
	stats, err := a.service.UserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
