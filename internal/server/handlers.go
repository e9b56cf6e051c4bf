package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigtrail/sigtrail/pkg/history"
)

// handleList returns the latest revision of every signal.
func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.Latest())
}

// handleHistory returns every stored revision of one signal. Unknown ids
// have an empty history.
func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.History(c.Param("id")))
}

func (s *Server) handleSubmit(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	snap, err := history.ParseSnapshot(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if snap.ID() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "id is required"})
		return
	}

	stored, err := s.Store.Append(snap, actor(c, snap))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// actor is who a revision is attributed to: an X-Actor header, else the
// submitted lastUpdateBy, else "sigtrail".
func actor(c *gin.Context, snap history.Snapshot) string {
	if a := c.GetHeader("X-Actor"); a != "" {
		return a
	}
	if a := snap.LastUpdateBy(); a != "" {
		return a
	}
	return "sigtrail"
}
