package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"auctionhub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
	readLimit  = 512
)

// WsServer serves the watch-only live feed: clients join one auction room,
// receive a snapshot and then every bid/closed event. Bids themselves go
// through the REST API.
type WsServer struct {
	hub      *Hub
	store    store.AuctionStore
	upgrader websocket.Upgrader
}

func NewWsServer(h *Hub, st store.AuctionStore) *WsServer {
	return &WsServer{
		hub:   h,
		store: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
	}
}

// Handle is the gin entry point: GET /ws?auction_id=<id>
func (s *WsServer) Handle(ginCtx *gin.Context) {
	auctionID, err := strconv.ParseInt(ginCtx.Query("auction_id"), 10, 64)
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "auction_id is required"})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(readLimit)

	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(auctionID, wsConn)

	if err := s.pushSnapshot(ginCtx.Request.Context(), auctionID, wsConn); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("ws.snapshot", zap.Error(err))
	}

	go s.reader(auctionID, wsConn)
	go s.pinger(wsConn)
}

func (s *WsServer) pushSnapshot(ctx context.Context, id int64, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	a, err := s.store.GetAuction(ctx, id)
	if err != nil {
		return err
	}
	return conn.writeJSON(Envelope{
		Event: "snapshot",
		Body:  SnapshotBody{Auction: a},
	})
}

// reader drains the connection so control frames are processed; any inbound
// data frame is ignored.
func (s *WsServer) reader(auctionID int64, conn *clientConn) {
	defer s.hub.Leave(auctionID, conn)

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.rawConn.ReadMessage(); err != nil {
			return // client closed or errored
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}
