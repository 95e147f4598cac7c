package httpserver

import (
	"errors"
	"net/http"

	"cis-portal/internal/domain"
	"github.com/gin-gonic/gin"
)

type registerOfficerRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *handlers) login(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	res, err := h.deps.Officers.Login(c.Request.Context(), creds)
	if err != nil {
		writeError(c, err)
		return
	}
	// The token stays in the gateway's credential store.
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.deps.Officers.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	res := h.deps.Officers.Me(c.Request.Context())
	if res.IsError() {
		writeError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"officer": res.Data})
}

func (h *handlers) listOfficers(c *gin.Context) {
	p, ok := bindListing(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	page, err := h.deps.Officers.Search(ctx, p)
	if err != nil {
		writeError(c, err)
		return
	}
	counts, err := h.deps.Officers.RoleCounts(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "counts": counts})
}

func (h *handlers) registerOfficer(c *gin.Context) {
	var req registerOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	o, err := h.deps.Officers.Register(c.Request.Context(), domain.RegisterOfficerInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		Email:           req.Email,
		Phone:           req.Phone,
		Role:            req.Role,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"officer": o})
}

func (h *handlers) getOfficer(c *gin.Context) {
	res := h.deps.Officers.Get(c.Request.Context(), c.Param("id"))
	if res.IsError() {
		writeError(c, res.Err)
		return
	}
	if res.Data == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"officer": res.Data})
}

func (h *handlers) updateOfficer(c *gin.Context) {
	var in domain.UpdateOfficerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	o, err := h.deps.Officers.Update(c.Request.Context(), c.Param("id"), in)
	if errors.Is(err, domain.ErrNoChanges) {
		c.JSON(http.StatusOK, gin.H{"changed": false, "message": "No changes to update"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true, "officer": o})
}

func (h *handlers) toggleOfficer(c *gin.Context) {
	if err := h.deps.Officers.ToggleStatus(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) activity(c *gin.Context) {
	p, ok := bindListing(c)
	if !ok {
		return
	}
	page, err := h.deps.Officers.ActivityLogs(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
