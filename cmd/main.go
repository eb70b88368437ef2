package main

import (
	"cherrypick/client/internal/api"
	"cherrypick/client/internal/chat"
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/localization"
	"cherrypick/client/internal/models"
	"cherrypick/client/internal/realtime"
	"cherrypick/client/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const usage = `Usage: cherrypick <command> [args]

Commands:
  login <phone> <password>    sign in and store the token
  rooms                       list your chat rooms
  chat <roomId>               open a chat room
  watch <auctionId>           print live bids of an auction
  bid <auctionId> <amount>    place a bid`

const connectWait = 3 * time.Second

type app struct {
	cfg       *config.Config
	store     storage.Storage
	api       *api.Client
	cache     *storage.HistoryCache
	localizer *localization.Localizer
}

func setupDependencies(cfg *config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	localizer, err := localization.NewLocalizer()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		store:     store,
		api:       api.NewClient(cfg.Client.APIBaseURL, cfg.Client.HTTPTimeout, store),
		localizer: localizer,
	}

	if cfg.Storage.CacheDSN != "" {
		cache, err := storage.OpenHistoryCache(cfg.Storage.CacheDSN)
		if err != nil {
			log.Printf("WARNING: history cache disabled: %v", err)
		} else {
			a.cache = cache
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.store.Close()
}

func (a *app) newRealtime() *realtime.Client {
	dialer := realtime.NewWSDialer(a.cfg.Client.ReconnectAttempts, a.cfg.Client.ReconnectDelay)
	return realtime.NewClient(dialer, a.store, realtime.Options{
		Endpoint:               a.cfg.Client.SocketURL,
		RejoinOnReconnect:      a.cfg.Client.RejoinOnReconnect,
		QueueWhileDisconnected: a.cfg.Client.QueueWhileDisconnected,
	})
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	a, err := setupDependencies(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if cfg.Client.MetricsAddr != "" {
		go serveMetrics(cfg.Client.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "login":
		if len(args) != 2 {
			fmt.Println("Usage: cherrypick login <phone> <password>")
			os.Exit(1)
		}
		err = a.login(ctx, args[0], args[1])
	case "rooms":
		err = a.rooms(ctx)
	case "chat":
		var roomID int64
		if roomID, err = parseID(args, "Usage: cherrypick chat <roomId>"); err == nil {
			err = a.chat(ctx, roomID)
		}
	case "watch":
		var auctionID int64
		if auctionID, err = parseID(args, "Usage: cherrypick watch <auctionId>"); err == nil {
			err = a.watch(ctx, auctionID)
		}
	case "bid":
		if len(args) != 2 {
			fmt.Println("Usage: cherrypick bid <auctionId> <amount>")
			os.Exit(1)
		}
		err = a.bid(ctx, args[0], args[1])
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			log.Printf("ERROR: not signed in or session expired, run `cherrypick login` first")
		}
		a.Close()
		log.Fatalf("Error: %v", err)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("INFO: metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("ERROR: metrics server stopped: %v", err)
	}
}

func parseID(args []string, help string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New(help)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func (a *app) login(ctx context.Context, phone, password string) error {
	resp, err := a.api.Login(ctx, phone, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (#%d)\n", resp.Nickname, resp.UserID)
	return nil
}

func (a *app) rooms(ctx context.Context) error {
	rooms, err := a.api.GetMyChatRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println("No chat rooms yet.")
		return nil
	}
	for _, r := range rooms {
		last := ""
		if r.LastMessage != nil {
			last = r.LastMessage.Message
		}
		fmt.Printf("#%-6d %-24s %-8s unread:%-3d %s\n", r.ID, r.AuctionTitle, r.Status, r.UnreadCount, last)
	}
	return nil
}

func (a *app) bid(ctx context.Context, auction, amount string) error {
	auctionID, err := strconv.ParseInt(auction, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid auction id %q", auction)
	}
	value, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", amount)
	}
	resp, err := a.api.PlaceBid(ctx, auctionID, value)
	if err != nil {
		return err
	}
	fmt.Printf("Bid accepted: %s\n", resp)
	return nil
}

// connect starts the realtime client and waits briefly for it to come up.
func (a *app) connect(ctx context.Context) (*realtime.Client, bool) {
	rt := a.newRealtime()
	if err := rt.Connect(ctx); err != nil {
		log.Printf("WARNING: realtime connect failed: %v", err)
		return rt, false
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(connectWait)
	for !rt.IsConnected() {
		select {
		case <-ctx.Done():
			return rt, false
		case <-deadline:
			log.Printf("WARNING: realtime still %s after %s", rt.State(), connectWait)
			return rt, false
		case <-ticker.C:
		}
	}
	return rt, true
}

func (a *app) watch(ctx context.Context, auctionID int64) error {
	rt, ok := a.connect(ctx)
	defer rt.Disconnect()
	if !ok {
		return errors.New("realtime channel unavailable")
	}

	rt.OnNewBid(func(update models.BidUpdate) {
		fmt.Printf("[%s] auction #%d: %s\n", time.Now().Format("15:04:05"), update.AuctionID, update.Raw)
	})
	rt.JoinAuctionRoom(auctionID)
	fmt.Printf("Watching auction #%d, Ctrl+C to stop.\n", auctionID)

	<-ctx.Done()
	return nil
}

func (a *app) chat(ctx context.Context, roomID int64) error {
	lang := a.cfg.Client.Locale
	rt, ok := a.connect(ctx)
	defer rt.Disconnect()
	if ok {
		fmt.Println(a.localizer.GetString(lang, localization.KeyConnected))
	} else {
		fmt.Println(a.localizer.GetString(lang, localization.KeyDisconnected))
	}

	alerter := chat.NewLocalizedAlerter(a.localizer, lang, func(title, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", title, message)
	})
	deps := chat.Deps{
		API:      a.api,
		Realtime: rt,
		Store:    a.store,
		Alerter:  alerter,
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}

	session, err := chat.Open(ctx, deps, roomID)
	if err != nil {
		return err
	}
	defer session.Close()

	p := newPrinter(session.Profile().ID)
	p.print(session.Messages())
	session.OnChange(p.print)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, open := <-lines:
			if !open {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/read":
				if err := session.MarkAllRead(ctx); err != nil {
					log.Printf("ERROR: %v", err)
				}
			case "/reload":
				_ = session.Reload(ctx)
			default:
				err := session.Send(ctx, line)
				if err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
					log.Printf("WARNING: %v", err)
				}
			}
		}
	}
}
