package http

import (
	"encoding/json"
	"fmt"

	"github.com/aptos-labs/hong-bao/internal/chat"
	"github.com/aptos-labs/hong-bao/internal/proto"
)

// inboundToInput maps an inbound frame to a room input. Any malformed or
// unknown frame is an error that ends the connection's inbound stream.
func inboundToInput(inbound proto.Inbound) (chat.Input, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		return chat.Input{Kind: chat.InputJoin}, nil
	case proto.InboundTypePost:
		var post proto.PostData
		if err := json.Unmarshal(inbound.Data, &post); err != nil {
			return chat.Input{}, fmt.Errorf("decode post data: %w", err)
		}
		return chat.Input{Kind: chat.InputPost, Body: post.Body}, nil
	default:
		return chat.Input{}, fmt.Errorf("unknown inbound type %q", inbound.Type)
	}
}

func outboundFromOutput(output chat.Output) proto.Outbound {
	switch output.Kind {
	case chat.OutputJoined:
		others := make([]proto.UserPayload, 0, len(output.Others))
		for _, u := range output.Others {
			others = append(others, userPayload(u))
		}
		messages := make([]proto.MessagePayload, 0, len(output.Messages))
		for _, m := range output.Messages {
			messages = append(messages, messagePayload(m))
		}
		return proto.Outbound{
			Type: proto.OutboundTypeJoined,
			Data: proto.JoinedData{
				User:     userPayload(output.User),
				Others:   others,
				Messages: messages,
			},
		}
	case chat.OutputUserJoined:
		return proto.Outbound{
			Type: proto.OutboundTypeUserJoined,
			Data: proto.UserJoinedData{User: userPayload(output.User)},
		}
	case chat.OutputUserLeft:
		return proto.Outbound{
			Type: proto.OutboundTypeUserLeft,
			Data: proto.UserLeftData{Address: output.Left.Hex()},
		}
	case chat.OutputPosted:
		return proto.Outbound{
			Type: proto.OutboundTypePosted,
			Data: proto.PostedData{Message: messagePayload(output.Message)},
		}
	case chat.OutputUserPosted:
		return proto.Outbound{
			Type: proto.OutboundTypeUserPosted,
			Data: proto.UserPostedData{Message: messagePayload(output.Message)},
		}
	case chat.OutputAlive:
		return proto.Outbound{Type: proto.OutboundTypeAlive}
	case chat.OutputError:
		if output.Error == nil {
			return proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "unknown", Msg: "unknown error"},
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: output.Error.Code, Msg: output.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError,
			Error: &proto.Error{Code: "unknown", Msg: "unknown event kind"}}
	}
}

func userPayload(u chat.User) proto.UserPayload {
	return proto.UserPayload{Address: u.Address.Hex()}
}

func messagePayload(m chat.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        m.ID,
		User:      userPayload(m.User),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
