// SPDX-License-Identifier: MIT

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	articleIDKey ctxKey = "article_id"
	episodeIDKey ctxKey = "episode_id"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithArticleID stores the provided article ID in the context.
func ContextWithArticleID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, articleIDKey, id)
}

// ContextWithEpisodeID stores the provided episode ID in the context.
func ContextWithEpisodeID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, episodeIDKey, id)
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ArticleIDFromContext extracts the article ID from context if present.
func ArticleIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(articleIDKey).(string); ok {
		return v
	}
	return ""
}

// EpisodeIDFromContext extracts the episode ID from context if present.
func EpisodeIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(episodeIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str("request_id", rid)
		added = true
	}
	if aid := ArticleIDFromContext(ctx); aid != "" {
		builder = builder.Str("article_id", aid)
		added = true
	}
	if eid := EpisodeIDFromContext(ctx); eid != "" {
		builder = builder.Str("episode_id", eid)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}
