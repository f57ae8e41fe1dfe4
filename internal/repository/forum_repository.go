package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// ForumRepositoryImpl implements the ForumRepository interface
type ForumRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewForumRepository creates a new ForumRepository
func NewForumRepository(db *pgxpool.Pool) domain.ForumRepository {
	return &ForumRepositoryImpl{db: db}
}

const forumPostColumns = `
	fp.id, fp.user_id, u.username, u.level, fp.title, fp.content, fp.category, fp.tags,
	fp.upvotes, fp.downvotes, fp.reply_count, fp.view_count, fp.is_pinned, fp.created_at, fp.updated_at`

func scanForumPost(row pgx.Row) (*domain.ForumPost, error) {
	p := &domain.ForumPost{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Username,
		&p.Level,
		&p.Title,
		&p.Content,
		&p.Category,
		&p.Tags,
		&p.Upvotes,
		&p.Downvotes,
		&p.ReplyCount,
		&p.ViewCount,
		&p.IsPinned,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPosts returns a page of posts, pinned first then newest
func (r *ForumRepositoryImpl) ListPosts(ctx context.Context, filter domain.PostFilter, page domain.Page) ([]*domain.ForumPost, int, error) {
	var where []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("fp.category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(fp.title ILIKE $%d OR fp.content ILIKE $%d)", len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM forum_posts fp `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM forum_posts fp
		JOIN users u ON fp.user_id = u.id
		%s
		ORDER BY fp.is_pinned DESC, fp.created_at DESC
		LIMIT $%d OFFSET $%d
	`, forumPostColumns, clause, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*domain.ForumPost{}
	for rows.Next() {
		p, err := scanForumPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, total, nil
}

// CreatePost inserts a post
func (r *ForumRepositoryImpl) CreatePost(ctx context.Context, post *domain.ForumPost) error {
	if post.Tags == nil {
		post.Tags = []string{}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO forum_posts (user_id, title, content, category, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, upvotes, downvotes, reply_count, view_count, is_pinned, created_at, updated_at
	`, post.UserID, post.Title, post.Content, post.Category, post.Tags).Scan(
		&post.ID,
		&post.Upvotes,
		&post.Downvotes,
		&post.ReplyCount,
		&post.ViewCount,
		&post.IsPinned,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetPostDetail increments the view counter and returns the post with replies
func (r *ForumRepositoryImpl) GetPostDetail(ctx context.Context, id uuid.UUID) (*domain.ForumPostDetail, error) {
	tag, err := r.db.Exec(ctx, `UPDATE forum_posts SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	post, err := scanForumPost(r.db.QueryRow(ctx, `
		SELECT `+forumPostColumns+`
		FROM forum_posts fp
		JOIN users u ON fp.user_id = u.id
		WHERE fp.id = $1
	`, id))
	if err != nil {
		return nil, wrapNotFound(err, "get post")
	}

	rows, err := r.db.Query(ctx, `
		SELECT fr.id, fr.post_id, fr.user_id, u.username, u.level, fr.parent_reply_id,
		       fr.content, fr.upvotes, fr.downvotes, fr.created_at
		FROM forum_replies fr
		JOIN users u ON fr.user_id = u.id
		WHERE fr.post_id = $1
		ORDER BY fr.created_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	replies := []*domain.ForumReply{}
	for rows.Next() {
		reply := &domain.ForumReply{}
		err := rows.Scan(
			&reply.ID,
			&reply.PostID,
			&reply.UserID,
			&reply.Username,
			&reply.Level,
			&reply.ParentReplyID,
			&reply.Content,
			&reply.Upvotes,
			&reply.Downvotes,
			&reply.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replies: %w", err)
	}

	return &domain.ForumPostDetail{ForumPost: post, Replies: replies}, nil
}

// CreateReply inserts the reply and increments the post's reply counter atomically
func (r *ForumRepositoryImpl) CreateReply(ctx context.Context, reply *domain.ForumReply) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE forum_posts SET reply_count = reply_count + 1, updated_at = NOW() WHERE id = $1
		`, reply.PostID)
		if err != nil {
			return fmt.Errorf("failed to increment reply count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO forum_replies (post_id, user_id, parent_reply_id, content)
			VALUES ($1, $2, $3, $4)
			RETURNING id, upvotes, downvotes, created_at
		`, reply.PostID, reply.UserID, reply.ParentReplyID, reply.Content).Scan(
			&reply.ID,
			&reply.Upvotes,
			&reply.Downvotes,
			&reply.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create reply: %w", err)
		}
		return nil
	})
}

// Vote records the user's single vote on a post, moving counters when it changes
func (r *ForumRepositoryImpl) Vote(ctx context.Context, postID, userID uuid.UUID, direction string) (*domain.VoteResult, error) {
	result := &domain.VoteResult{PostID: postID, Vote: direction}

	err := withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT upvotes, downvotes FROM forum_posts WHERE id = $1 FOR UPDATE
		`, postID).Scan(&result.Upvotes, &result.Downvotes)
		if err != nil {
			return wrapNotFound(err, "lock post")
		}

		var previous string
		err = tx.QueryRow(ctx, `
			SELECT direction FROM forum_votes WHERE post_id = $1 AND user_id = $2
		`, postID, userID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to get vote: %w", err)
		}
		if previous == direction {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO forum_votes (post_id, user_id, direction)
			VALUES ($1, $2, $3)
			ON CONFLICT (post_id, user_id) DO UPDATE SET direction = EXCLUDED.direction, created_at = NOW()
		`, postID, userID, direction)
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		up, down := voteDelta(previous, direction)
		err = tx.QueryRow(ctx, `
			UPDATE forum_posts SET upvotes = upvotes + $2, downvotes = downvotes + $3
			WHERE id = $1
			RETURNING upvotes, downvotes
		`, postID, up, down).Scan(&result.Upvotes, &result.Downvotes)
		if err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// voteDelta returns the counter changes for moving from previous (possibly empty) to next
func voteDelta(previous, next string) (int, int) {
	up, down := 0, 0
	switch previous {
	case domain.VoteUp:
		up--
	case domain.VoteDown:
		down--
	}
	switch next {
	case domain.VoteUp:
		up++
	case domain.VoteDown:
		down++
	}
	return up, down
}

// Categories returns every category with its post count
func (r *ForumRepositoryImpl) Categories(ctx context.Context) ([]*domain.CategoryCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*) FROM forum_posts
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.CategoryCount{}
	for rows.Next() {
		c := &domain.CategoryCount{}
		if err := rows.Scan(&c.Category, &c.PostCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
