package bm

import "context"

// NopPublisher drops every message. It is wired when messaging is disabled.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishJSON(context.Context, string, string, any) error {
	return nil
}
