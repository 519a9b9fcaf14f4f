package http

import (
	"strconv"

	"complaint_server/core/domain"
	"complaint_server/core/port/in"
	"complaint_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ComplaintHandler handles HTTP requests for complaint operations
type ComplaintHandler struct {
	service in.ComplaintService
}

// NewComplaintHandler creates a new ComplaintHandler
func NewComplaintHandler(service in.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

// Register registers complaint routes. Extra handlers run before Create only.
func (h *ComplaintHandler) Register(router fiber.Router, createMiddleware ...fiber.Handler) {
	complaints := router.Group("/complaints")

	complaints.Get("/", h.List)
	complaints.Post("/", append(createMiddleware, h.Create)...)
	complaints.Post("/:id", h.Close)
}

type createComplaintRequest struct {
	Text *string `json:"text"`
}

type listComplaintsResponse struct {
	Complaints []*domain.ComplaintView `json:"complaints"`
}

type closeComplaintResponse struct {
	OK bool `json:"ok"`
}

// Create classifies and stores a new complaint
// @Summary Create complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Success 201 {object} domain.ComplaintView
// @Failure 422 {object} middleware.ErrorResponse
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *fiber.Ctx) error {
	var req createComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Unprocessable("body", "must be a JSON object with a text field")
	}
	if req.Text == nil {
		return apperr.Unprocessable("text", "field required")
	}

	view, err := h.service.Create(c.UserContext(), *req.Text)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

// List returns open complaints from the recent window
// @Summary List recent open complaints
// @Tags Complaints
// @Produce json
// @Success 200 {object} listComplaintsResponse
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *fiber.Ctx) error {
	views, err := h.service.ListRecentOpen(c.UserContext())
	if err != nil {
		return err
	}
	if views == nil {
		views = []*domain.ComplaintView{}
	}

	return c.JSON(listComplaintsResponse{Complaints: views})
}

// Close marks a complaint closed
// @Summary Close complaint
// @Tags Complaints
// @Produce json
// @Param id path int true "Complaint ID"
// @Success 200 {object} closeComplaintResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /complaints/{id} [post]
func (h *ComplaintHandler) Close(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.NotFound("complaint")
	}

	if err := h.service.Close(c.UserContext(), id); err != nil {
		return err
	}

	return c.JSON(closeComplaintResponse{OK: true})
}
