package ports

import "context"

// Publisher delivers a raw message to a topic. Reload events go through it.
type Publisher interface {
	PublishRaw(ctx context.Context, arn string, payload []byte) error
}
