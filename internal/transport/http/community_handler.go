package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"ecoquest-service/internal/app"
	"ecoquest-service/internal/auth"
	"github.com/gorilla/websocket"
)

// CommunityWSHandler serves the group directory and group chat over one
// socket per client. The client joins one group at a time; joining another
// swaps the message subscription.
type CommunityWSHandler struct {
	community *app.CommunityService
	verifier  auth.Verifier
	upgrader  websocket.Upgrader
}

func NewCommunityWSHandler(community *app.CommunityService, verifier auth.Verifier) *CommunityWSHandler {
	return &CommunityWSHandler{
		community: community,
		verifier:  verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type createGroupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type deleteGroupPayload struct {
	GroupID string `json:"groupId"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId"`
}

type sendMessagePayload struct {
	GroupID string `json:"groupId"`
	Text    string `json:"text"`
}

func (h *CommunityWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsSessionsActive.Inc()
	defer wsSessionsActive.Dec()

	ctx := r.Context()

	groups, cancelGroups, err := h.community.SubscribeGroups(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelGroups()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	sendMsg := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	pumps.Add(1)
	go func() {
		defer pumps.Done()
		for {
			select {
			case snapshot, ok := <-groups:
				if !ok {
					return
				}
				sendMsg(outboundMessage[any]{Type: "groups", Payload: snapshot})
			case <-closeSignals:
				return
			}
		}
	}()

	// One message subscription at a time; joining a group replaces it.
	var cancelMessages func()
	var messagesStop chan struct{}
	leaveGroup := func() {
		if cancelMessages != nil {
			cancelMessages()
			close(messagesStop)
			cancelMessages = nil
			messagesStop = nil
		}
	}
	defer leaveGroup()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "createGroup":
			var payload createGroupPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid createGroup payload"}})
				continue
			}
			group, err := h.community.CreateGroup(ctx, payload.Name, payload.Description, identity.ID)
			if err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			sendMsg(outboundMessage[any]{Type: "groupCreated", Payload: group})
		case "deleteGroup":
			var payload deleteGroupPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid deleteGroup payload"}})
				continue
			}
			if err := h.community.DeleteGroup(ctx, payload.GroupID, identity.ID); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			sendMsg(outboundMessage[any]{Type: "groupDeleted", Payload: deleteGroupPayload{GroupID: payload.GroupID}})
		case "join":
			var payload joinGroupPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid join payload"}})
				continue
			}
			leaveGroup()
			feed, cancel, err := h.community.SubscribeMessages(ctx, payload.GroupID)
			if err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			cancelMessages = cancel
			messagesStop = make(chan struct{})
			stop := messagesStop
			pumps.Add(1)
			go func() {
				defer pumps.Done()
				for {
					select {
					case snapshot, ok := <-feed:
						if !ok {
							return
						}
						sendMsg(outboundMessage[any]{Type: "messages", Payload: snapshot})
					case <-stop:
						return
					case <-closeSignals:
						return
					}
				}
			}()
		case "send":
			var payload sendMessagePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid send payload"}})
				continue
			}
			msg, err := h.community.SendMessage(ctx, payload.GroupID, identity.ID, displayName(identity), payload.Text)
			if err != nil {
				sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			sendMsg(outboundMessage[any]{Type: "messageSent", Payload: msg})
		default:
			sendMsg(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	leaveGroup()
	close(closeSignals)
	pumps.Wait()
	close(send)
	<-writerDone
}

func displayName(identity auth.Identity) string {
	if identity.DisplayName != "" {
		return identity.DisplayName
	}
	if identity.Email != "" {
		return identity.Email
	}
	return identity.ID
}
