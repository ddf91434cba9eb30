package livekit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/emiago/sipgo/sip"
	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"
	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Client implements the agent's provider interfaces (RoomConnector,
// SIPClient, RoomAdmin) against a LiveKit deployment.
type Client struct {
	url            string
	apiKey         string
	apiSecret      string
	identityPrefix string

	sip   *lksdk.SIPClient
	rooms *lksdk.RoomServiceClient
}

func NewClient(url, apiKey, apiSecret, identityPrefix string) *Client {
	return &Client{
		url:            url,
		apiKey:         apiKey,
		apiSecret:      apiSecret,
		identityPrefix: identityPrefix,
		sip:            lksdk.NewSIPClient(url, apiKey, apiSecret),
		rooms:          lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
	}
}

// Connect joins the named room as the agent participant.
func (c *Client) Connect(ctx context.Context, roomName string) (agent.RoomSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs := &roomSession{joined: make(chan struct{}, 1)}
	cb := &lksdk.RoomCallback{
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			logger.Log.Debugf("Participant connected to %s: %s", roomName, rp.Identity())
			select {
			case rs.joined <- struct{}{}:
			default:
			}
		},
	}

	room, err := lksdk.ConnectToRoom(c.url, lksdk.ConnectInfo{
		APIKey:              c.apiKey,
		APISecret:           c.apiSecret,
		RoomName:            roomName,
		ParticipantIdentity: c.identityPrefix + "-" + roomName,
	}, cb)
	if err != nil {
		return nil, fmt.Errorf("connect to room %s: %w", roomName, err)
	}
	rs.room = room
	return rs, nil
}

type roomSession struct {
	room   *lksdk.Room
	joined chan struct{}
}

func (s *roomSession) Name() string { return s.room.Name() }

func (s *roomSession) WaitForParticipant(ctx context.Context, identity string) (agent.Participant, error) {
	for {
		for _, rp := range s.room.GetRemoteParticipants() {
			if rp.Identity() == identity {
				return agent.Participant{Identity: rp.Identity(), SID: rp.SID()}, nil
			}
		}
		select {
		case <-ctx.Done():
			return agent.Participant{}, ctx.Err()
		case <-s.joined:
			// Re-scan; the join signal carries no identity filter.
		}
	}
}

func (s *roomSession) Disconnect() { s.room.Disconnect() }

// CreateParticipant dials the number into the room over the configured
// trunk. With WaitUntilAnswered set, the call blocks until the callee
// answers or the provider reports a definitive failure.
func (c *Client) CreateParticipant(ctx context.Context, req agent.SIPDialRequest) error {
	_, err := c.sip.CreateSIPParticipant(ctx, &lkproto.CreateSIPParticipantRequest{
		SipTrunkId:          req.TrunkID,
		SipCallTo:           req.ToNumber,
		RoomName:            req.RoomName,
		ParticipantIdentity: req.Identity,
		WaitUntilAnswered:   req.WaitUntilAnswered,
	})
	if err != nil {
		return wrapSIPError(err)
	}
	return nil
}

func (c *Client) TransferParticipant(ctx context.Context, roomName, identity, transferTo string) error {
	_, err := c.sip.TransferSIPParticipant(ctx, &lkproto.TransferSIPParticipantRequest{
		RoomName:            roomName,
		ParticipantIdentity: identity,
		TransferTo:          transferTo,
	})
	if err != nil {
		return wrapSIPError(err)
	}
	return nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomName string) error {
	_, err := c.rooms.DeleteRoom(ctx, &lkproto.DeleteRoomRequest{Room: roomName})
	return err
}

// wrapSIPError preserves the SIP status the provider attaches to twirp
// errors, for observability in call records and logs.
func wrapSIPError(err error) error {
	var terr twirp.Error
	if !errors.As(err, &terr) {
		return err
	}
	code := 0
	if v := terr.Meta("sip_status_code"); v != "" {
		if n, aerr := strconv.Atoi(v); aerr == nil {
			code = n
		}
	}
	return &agent.SIPStatusError{
		Code:   sip.StatusCode(code),
		Status: terr.Meta("sip_status"),
		Err:    err,
	}
}
