package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

type rememberedEntry struct {
	Value string `json:"value"`
}

type pendingEntry struct {
	Identifier string `json:"identifier"`
}

func (c *Controller) rememberKey() string {
	return c.opts.KeyPrefix + "remembered_identifier"
}

func (c *Controller) pendingKey() string {
	return c.opts.KeyPrefix + "pending"
}

// loadRemembered seeds the remember-me state from the store
func (c *Controller) loadRemembered(ctx context.Context) {
	var entry rememberedEntry
	if !c.readJSON(ctx, c.rememberKey(), &entry) || entry.Value == "" {
		return
	}
	value := entry.Value
	c.form.RememberedIdentifier = &value
	c.form.RememberMe = true
}

// persistRemembered writes or clears the remembered identifier to match rememberMe
func (c *Controller) persistRemembered(ctx context.Context, identifier string) {
	if !c.form.RememberMe {
		c.form.RememberedIdentifier = nil
		if err := c.deps.Store.Delete(ctx, c.rememberKey()); err != nil {
			c.storageError("delete", c.rememberKey(), err)
		}
		return
	}

	value := strings.TrimSpace(identifier)
	c.form.RememberedIdentifier = &value
	c.writeJSON(ctx, c.rememberKey(), rememberedEntry{Value: value}, c.opts.RememberTTL)
}

// takePending returns and removes the identifier of the last forwarded submission
func (c *Controller) takePending(ctx context.Context) string {
	var entry pendingEntry
	if !c.readJSON(ctx, c.pendingKey(), &entry) {
		return ""
	}
	if err := c.deps.Store.Delete(ctx, c.pendingKey()); err != nil {
		c.storageError("delete", c.pendingKey(), err)
	}
	return entry.Identifier
}

func (c *Controller) markPending(ctx context.Context, identifier string) {
	c.writeJSON(ctx, c.pendingKey(), pendingEntry{Identifier: identifier}, c.opts.PendingTTL)
}

// readJSON decodes the entry at key into v. Corrupt entries are deleted.
func (c *Controller) readJSON(ctx context.Context, key string, v any) bool {
	raw, ok, err := c.deps.Store.Get(ctx, key)
	if err != nil {
		c.storageError("get", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		c.deps.Logger.Warn("discarding corrupt store entry", slog.String("key", key), slog.Any("error", err))
		if err := c.deps.Store.Delete(ctx, key); err != nil {
			c.storageError("delete", key, err)
		}
		return false
	}
	return true
}

func (c *Controller) writeJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.storageError("set", key, err)
		return
	}
	if err := c.deps.Store.Set(ctx, key, string(data), ttl); err != nil {
		c.storageError("set", key, err)
	}
}

// storageError logs a store failure. Store failures never reach the user.
func (c *Controller) storageError(op, key string, err error) {
	c.deps.Logger.Warn("store operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err))
	if c.deps.Metrics != nil {
		c.deps.Metrics.StorageErrors.WithLabelValues(op).Inc()
	}
}
