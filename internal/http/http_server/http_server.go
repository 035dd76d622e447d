package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"auctionhub/internal/http/auctionhandler"
	"auctionhub/internal/services/bidding"
	"auctionhub/internal/store"
	"auctionhub/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	bids       bidding.IBiddingService
	store      store.AuctionStore
	wsSrv      *ws.WsServer
}

func NewHttpServer(listenPort uint16, wsSrv *ws.WsServer, bids bidding.IBiddingService, st store.AuctionStore) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		bids:       bids,
		store:      st,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint (live auction feed)
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	ah := auctionhandler.New(h.bids, h.store)
	ah.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}
	return nil
}
