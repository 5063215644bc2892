package store

import (
	"context"
	"strings"

	"go.uber.org/multierr"
)

// MultiSink writes every record to each of its sinks and combines their errors.
type MultiSink []ConversationSink

var _ ConversationSink = MultiSink(nil)

// SaveConversation implements ConversationSink.
func (m MultiSink) SaveConversation(ctx context.Context, rec ConversationRecord) error {
	var errs error
	for _, sink := range m {
		errs = multierr.Append(errs, WrapError(sink.SaveConversation(ctx, rec), sink.Name(), "save"))
	}
	return errs
}

// Name joins the sink names with "+".
func (m MultiSink) Name() string {
	names := make([]string, len(m))
	for i, sink := range m {
		names[i] = sink.Name()
	}
	return strings.Join(names, "+")
}
