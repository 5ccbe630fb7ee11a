package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	PostIDKey contextKey = "post_id"
	DBConnKey contextKey = "db_conn"
)

var postIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// PostMiddleware resolves the advanced medical post a request belongs to
// and pins a schema-scoped connection on the request context. Each post
// gets its own schema so deployments at different events never mix data.
func PostMiddleware(pool *pgxpool.Pool, defaultPost string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			postID := extractPostID(c, defaultPost)

			if !postIDPattern.MatchString(postID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid post identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("post_%s", postID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "post resolution failed")
			}

			ctx = context.WithValue(ctx, PostIDKey, postID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("post_id", postID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractPostID(c echo.Context, defaultPost string) string {
	// 1. Check JWT claim (set by auth middleware)
	if pid, ok := c.Get("jwt_post_id").(string); ok && pid != "" {
		return pid
	}

	// 2. Check X-Post-ID header
	if pid := c.Request().Header.Get("X-Post-ID"); pid != "" {
		return pid
	}

	// 3. Check query parameter
	if pid := c.QueryParam("post_id"); pid != "" {
		return pid
	}

	return defaultPost
}

// ScopedContext pins a schema-scoped connection on a context for work that
// runs outside a request, such as the background roster refresher. The
// release func must be called once the work is done.
func ScopedContext(ctx context.Context, pool *pgxpool.Pool, postID string) (context.Context, func(), error) {
	if !postIDPattern.MatchString(postID) {
		return nil, nil, fmt.Errorf("invalid post identifier: %s", postID)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO post_%s, shared, public", postID)); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("scope to post %s: %w", postID, err)
	}

	ctx = context.WithValue(ctx, PostIDKey, postID)
	ctx = context.WithValue(ctx, DBConnKey, conn)
	return ctx, conn.Release, nil
}

// ConnFromContext retrieves the post-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// PostFromContext retrieves the post ID from context.
func PostFromContext(ctx context.Context) string {
	pid, _ := ctx.Value(PostIDKey).(string)
	return pid
}

// CreatePostSchema creates a new schema for a post and runs all migrations against it.
// The migrationsDir parameter specifies the directory containing migration SQL files.
// If migrationsDir is empty, migrations are skipped.
func CreatePostSchema(ctx context.Context, pool *pgxpool.Pool, postID string, migrationsDir string) error {
	if !postIDPattern.MatchString(postID) {
		return fmt.Errorf("invalid post identifier: %s", postID)
	}

	schema := fmt.Sprintf("post_%s", postID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
