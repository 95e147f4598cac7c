package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"cis-portal/internal/diff"
	"cis-portal/internal/domain"
	"cis-portal/internal/validation"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 8 << 20

type createCustomerRequest struct {
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
	Gender      string `json:"gender" form:"gender"`
	DateOfBirth string `json:"DateOfBirth" form:"DateOfBirth"`
	ProductID   string `json:"product_id" form:"product_id"`
	Address     string `json:"address" form:"address"`
}

type renewRequest struct {
	ProductID string `json:"product_id"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// readUpload loads an uploaded file, reading one byte past the photo limit
// so the size rule can still reject it.
func readUpload(fh *multipart.FileHeader) (*domain.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, validation.MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &domain.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func (h *handlers) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Customers.Dashboard(c.Request.Context()))
}

func (h *handlers) listCustomers(c *gin.Context) {
	p, ok := bindListing(c)
	if !ok {
		return
	}
	page, err := h.deps.Customers.Search(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getCustomer(c *gin.Context) {
	res := h.deps.Customers.Get(c.Request.Context(), c.Param("id"))
	if res.IsError() {
		writeError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": res.Data})
}

func (h *handlers) createCustomer(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	var req createCustomerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	in := domain.CreateCustomerInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
		ProductID:   req.ProductID,
		Address:     req.Address,
	}
	if isMultipart(c) {
		fh, err := c.FormFile("profile_image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid upload"})
			return
		default:
			if in.Photo, err = readUpload(fh); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid upload"})
				return
			}
		}
	}

	out, err := h.deps.Customers.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{
		"state":     out.State,
		"customer":  out.Customer,
		"card_file": out.CardFile,
		"saved_to":  out.SavedTo,
	}
	if out.Warning != nil {
		body["warning"] = out.Warning.Warning()
	}
	c.JSON(http.StatusCreated, body)
}

// updateCustomer accepts the edited form as JSON or multipart. Only fields
// that differ from the stored record are sent upstream.
func (h *handlers) updateCustomer(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	edited := diff.Record{}
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid form"})
			return
		}
		for k, vs := range form.Value {
			if len(vs) > 0 {
				edited[k] = vs[0]
			}
		}
		if fhs := form.File[diff.FieldProfileImage]; len(fhs) > 0 {
			f, err := readUpload(fhs[0])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid upload"})
				return
			}
			edited[diff.FieldProfileImage] = f
		}
	} else {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		for k, v := range body {
			edited[k] = v
		}
	}

	updated, err := h.deps.Customers.Update(c.Request.Context(), c.Param("id"), edited)
	if errors.Is(err, domain.ErrNoChanges) {
		c.JSON(http.StatusOK, gin.H{"changed": false, "message": "No changes to update", "customer": updated})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true, "customer": updated})
}

func (h *handlers) deleteCustomer(c *gin.Context) {
	if err := h.deps.Customers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) renewCustomer(c *gin.Context) {
	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	cust, err := h.deps.Customers.Renew(c.Request.Context(), domain.RenewInput{CustomerID: c.Param("id"), ProductID: req.ProductID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": cust})
}

func (h *handlers) downloadIDCard(c *gin.Context) {
	loc, err := h.deps.Customers.DownloadIDCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_to": loc})
}

func (h *handlers) exportCustomers(c *gin.Context) {
	loc, err := h.deps.Customers.ExportCSV(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_to": loc})
}

func (h *handlers) verifyCustomer(c *gin.Context) {
	v, err := h.deps.Customers.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
