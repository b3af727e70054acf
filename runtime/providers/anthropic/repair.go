package anthropic

import "github.com/agentrtkit/codexrt/runtime/protocol"

// RewriteEventsWithSchemaMatch implements spec §4.1 step 5: once a
// schema-matching JSON candidate has been extracted from the assistant's
// text, the collected event sequence is rewritten so a caller reading only
// the events sees the normalized JSON rather than the raw text. The final
// assistant OutputItemDone(Message) has its content replaced; the first
// OutputTextDelta following the corresponding OutputItemAdded(Message) is
// replaced with the normalized text and every subsequent delta is dropped.
func RewriteEventsWithSchemaMatch(events []protocol.ResponseEvent, normalized string) []protocol.ResponseEvent {
	lastMessageDoneIdx := -1
	for i, ev := range events {
		if ev.Kind == protocol.EventOutputItemDone && ev.Item != nil && ev.Item.Kind == protocol.ResponseItemMessage {
			lastMessageDoneIdx = i
		}
	}
	if lastMessageDoneIdx == -1 {
		return events
	}

	messageAddedIdx := -1
	for i := lastMessageDoneIdx - 1; i >= 0; i-- {
		if events[i].Kind == protocol.EventOutputItemAdded && events[i].Item != nil && events[i].Item.Kind == protocol.ResponseItemMessage {
			messageAddedIdx = i
			break
		}
	}

	out := make([]protocol.ResponseEvent, 0, len(events))
	replacedDelta := false
	for i, ev := range events {
		switch {
		case i == lastMessageDoneIdx:
			item := *ev.Item
			item.Content = []protocol.ContentBlock{{Kind: protocol.ContentOutputText, Text: normalized}}
			out = append(out, protocol.OutputItemDone(item))
		case messageAddedIdx >= 0 && i > messageAddedIdx && ev.Kind == protocol.EventOutputTextDelta:
			if !replacedDelta {
				replacedDelta = true
				out = append(out, protocol.OutputTextDelta(normalized))
			}
			// subsequent deltas are dropped
		default:
			out = append(out, ev)
		}
	}
	return out
}

// LastAssistantMessageText returns the text content of the final
// OutputItemDone(Message) in events, or "" if none is present.
func LastAssistantMessageText(events []protocol.ResponseEvent) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Kind == protocol.EventOutputItemDone && ev.Item != nil && ev.Item.Kind == protocol.ResponseItemMessage {
			var text string
			for _, block := range ev.Item.Content {
				text += block.Text
			}
			return text
		}
	}
	return ""
}
