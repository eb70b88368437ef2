package devserver

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// local use only
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the REST API and the realtime gateway of the dev server.
type Handler struct {
	Hub    *Hub
	Store  *Store
	Secret []byte
}

func NewHandler(hub *Hub, store *Store, secret []byte) *Handler {
	return &Handler{Hub: hub, Store: store, Secret: secret}
}

func failure(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// storeError maps store errors onto HTTP statuses.
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		c.JSON(http.StatusNotFound, failure(err.Error()))
	case errors.Is(err, ErrNotMember):
		c.JSON(http.StatusForbidden, failure(err.Error()))
	case errors.Is(err, ErrBidTooLow):
		c.JSON(http.StatusBadRequest, failure(err.Error()))
	default:
		log.Printf("ERROR: dev server request failed: %v", err)
		c.JSON(http.StatusInternalServerError, failure("internal error"))
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, failure("invalid "+name))
		return 0, false
	}
	return id, true
}

func (h *Handler) GetMessages(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, failure("invalid page"))
		return
	}

	result, err := h.Store.Messages(roomID, currentUser(c), page, config.HistoryPageSize)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type sendMessageRequest struct {
	Message     string             `json:"message" binding:"required"`
	MessageType models.MessageType `json:"messageType"`
}

// PostMessage persists a message and pushes it to the room as new_message.
func (h *Handler) PostMessage(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("message is required"))
		return
	}

	msg, err := h.Store.AddMessage(roomID, currentUser(c), req.Message, req.MessageType, "")
	if err != nil {
		storeError(c, err)
		return
	}
	h.Hub.Publish(chatTopic(roomID), models.EventNewMessage, msg)
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}

	changed, err := h.Store.MarkRead(roomID, messageID, currentUser(c))
	if err != nil {
		storeError(c, err)
		return
	}
	if changed {
		h.Hub.Publish(chatTopic(roomID), models.EventMessageRead, models.MessageRead{MessageID: messageID, RoomID: roomID})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	changed, err := h.Store.MarkAllRead(roomID, currentUser(c))
	if err != nil {
		storeError(c, err)
		return
	}
	for _, id := range changed {
		h.Hub.Publish(chatTopic(roomID), models.EventMessageRead, models.MessageRead{MessageID: id, RoomID: roomID})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	if err := h.Store.Leave(roomID, currentUser(c)); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) MyRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.RoomsOf(currentUser(c)))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.UnreadCount(currentUser(c)))
}

type bidRequest struct {
	AuctionID int64 `json:"auctionId" binding:"required"`
	BidAmount int64 `json:"bidAmount" binding:"required"`
	IsAutoBid bool  `json:"isAutoBid"`
}

// PlaceBid records a bid and pushes it to the auction as new_bid.
func (h *Handler) PlaceBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("auctionId and bidAmount are required"))
		return
	}

	bid, err := h.Store.PlaceBid(req.AuctionID, currentUser(c), req.BidAmount, req.IsAutoBid)
	if err != nil {
		storeError(c, err)
		return
	}
	h.Hub.Publish(auctionTopic(req.AuctionID), models.EventNewBid, bid)
	c.JSON(http.StatusOK, bid)
}

// ServeWebSocket upgrades an authenticated request to a realtime connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, failure("Authorization token missing"))
		return
	}
	userID, err := validateAndGetUserID(h.Secret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, failure("Invalid token or expired"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	NewClient(h.Hub, userID, conn).Run()
}
