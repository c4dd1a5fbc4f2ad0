package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type stubMessages struct {
	sent        *model.Message
	sendErr     error
	messages    []model.Message
	counts      []model.UnreadCount
	markedPeers []int
}

func (s *stubMessages) Send(ctx context.Context, senderID, recipientID int, body string) (*model.Message, error) {
	return s.sent, s.sendErr
}
func (s *stubMessages) Conversation(ctx context.Context, userID, peerID, limit, offset int) ([]model.Message, error) {
	return s.messages, nil
}
func (s *stubMessages) UnreadCounts(ctx context.Context, userID int) ([]model.UnreadCount, error) {
	return s.counts, nil
}
func (s *stubMessages) MarkRead(ctx context.Context, userID, peerID int) error {
	s.markedPeers = append(s.markedPeers, peerID)
	return nil
}

func newMessageRig(stub *stubMessages) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMessageHandler(stub, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 1)
	})
	r.POST("/messages", h.Send)
	r.GET("/messages/unread", h.Unread)
	r.GET("/messages/:userID", h.Conversation)
	r.POST("/messages/read/:userID", h.MarkRead)
	return r
}

func TestSendMessage(t *testing.T) {
	stub := &stubMessages{sent: &model.Message{ID: 10, SenderID: 1, RecipientID: 2, Body: "hello"}}
	r := newMessageRig(stub)

	w := doJSON(r, "POST", "/messages", `{"recipient_id":2,"body":"hello"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestSendMessageToSelf(t *testing.T) {
	stub := &stubMessages{}
	r := newMessageRig(stub)

	w := doJSON(r, "POST", "/messages", `{"recipient_id":1,"body":"hi me"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	stub := &stubMessages{sendErr: service.ErrRecipientNotFound}
	r := newMessageRig(stub)

	w := doJSON(r, "POST", "/messages", `{"recipient_id":99,"body":"hello"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversation(t *testing.T) {
	stub := &stubMessages{messages: []model.Message{{ID: 1, Body: "a"}, {ID: 2, Body: "b"}}}
	r := newMessageRig(stub)

	w := doJSON(r, "GET", "/messages/2?limit=10", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"b"`)
}

func TestConversationBadPeerID(t *testing.T) {
	stub := &stubMessages{}
	r := newMessageRig(stub)

	w := doJSON(r, "GET", "/messages/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnreadCounts(t *testing.T) {
	stub := &stubMessages{counts: []model.UnreadCount{{PeerID: 2, Count: 3}}}
	r := newMessageRig(stub)

	w := doJSON(r, "GET", "/messages/unread", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
}

func TestMarkReadEndpoint(t *testing.T) {
	stub := &stubMessages{}
	r := newMessageRig(stub)

	w := doJSON(r, "POST", "/messages/read/2", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{2}, stub.markedPeers)
}
