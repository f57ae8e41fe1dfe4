package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

var errPostNotFound = echo.NewHTTPError(http.StatusNotFound, "Post not found")

// ForumHandler handles forum posts, replies and votes
type ForumHandler struct {
	forumRepo domain.ForumRepository
}

// NewForumHandler creates a new ForumHandler
func NewForumHandler(forumRepo domain.ForumRepository) *ForumHandler {
	return &ForumHandler{
		forumRepo: forumRepo,
	}
}

// ListPosts returns a page of posts, pinned first
// GET /api/forum/posts?page&limit&category&search
func (h *ForumHandler) ListPosts(c echo.Context) error {
	page := queryPage(c, 20, 50)
	filter := domain.PostFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, total, err := h.forumRepo.ListPosts(ctx, filter, page)
	if err != nil {
		return err
	}

	return PaginatedResponse(c, posts, page, total)
}

// CreatePost opens a thread
// POST /api/forum/posts
func (h *ForumHandler) CreatePost(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post := &domain.ForumPost{
		UserID:   userID,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.forumRepo.CreatePost(ctx, post); err != nil {
		return err
	}

	return CreatedResponse(c, post)
}

// GetPost returns a post with its replies and counts the view
// GET /api/forum/posts/:id
func (h *ForumHandler) GetPost(c echo.Context) error {
	postID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.forumRepo.GetPostDetail(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		return errPostNotFound
	}
	if err != nil {
		return err
	}

	return SuccessResponse(c, detail)
}

// CreateReply replies to a post
// POST /api/forum/posts/:id/replies
func (h *ForumHandler) CreateReply(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req dto.CreateReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	reply := &domain.ForumReply{
		PostID:  postID,
		UserID:  userID,
		Content: req.Content,
	}
	if req.ParentReplyID != nil {
		parent, err := uuid.Parse(*req.ParentReplyID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent_reply_id")
		}
		reply.ParentReplyID = &parent
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.forumRepo.CreateReply(ctx, reply); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errPostNotFound
		}
		return err
	}

	return CreatedResponse(c, reply)
}

// Vote casts or changes the user's vote on a post
// POST /api/forum/posts/:id/vote
func (h *ForumHandler) Vote(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	postID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req dto.VoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	result, err := h.forumRepo.Vote(ctx, postID, userID, req.Type)
	if errors.Is(err, domain.ErrNotFound) {
		return errPostNotFound
	}
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Vote recorded", result)
}

// Categories returns the post count per category
// GET /api/forum/categories
func (h *ForumHandler) Categories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	categories, err := h.forumRepo.Categories(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, categories)
}
