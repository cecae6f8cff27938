package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is the HTTP header for correlation ID
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the key used to store correlation ID in the context
	CorrelationIDKey = "correlation_id"

	// ActorIDHeader identifies the operator on whose behalf the request runs
	ActorIDHeader = "X-Actor-ID"

	// ActorIDKey is the key used to store the actor in the context
	ActorIDKey = "actor_id"
)

// CorrelationID middleware ensures each request has a unique identifier for tracing
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID retrieves the correlation ID from the gin context if present
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}

// Actor stores the caller supplied operator id. Authentication happens upstream of this API,
// so the header is trusted as is; requests without it are recorded as system actions.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorID := strings.TrimSpace(c.GetHeader(ActorIDHeader)); actorID != "" {
			c.Set(ActorIDKey, actorID)
		}
		c.Next()
	}
}

// GetActorID returns nil when the request carried no actor
func GetActorID(c *gin.Context) *string {
	if id, exists := c.Get(ActorIDKey); exists {
		if actorID, ok := id.(string); ok {
			return &actorID
		}
	}
	return nil
}
