package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coboard/internal/canvas"
	"coboard/internal/client"
	"coboard/internal/config"
	"coboard/internal/discover"
	"coboard/internal/hub"
	"coboard/internal/wire"
)

func main() {
	cfg := config.Load()

	connectFlag := flag.String("connect", cfg.Connect, "host:port of a running whiteboard to join; empty hosts a new one")
	nameFlag := flag.String("name", cfg.Name, "display name")
	portFlag := flag.String("port", cfg.Port, "listen port when hosting")
	discoverFlag := flag.Bool("discover", false, "find a host on the local network instead of -connect")
	flag.Parse()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	board := canvas.NewBoard(cfg.CanvasWidth, cfg.CanvasHeight)

	addr := *connectFlag
	if *discoverFlag {
		found := make(chan string, 1)
		if err := discover.Browse(func(a string) {
			select {
			case found <- a:
			default:
			}
		}); err != nil {
			logger.Warn().Err(err).Msg("mDNS lookup failed")
		}
		select {
		case addr = <-found:
			logger.Info().Str("addr", addr).Msg("discovered whiteboard host")
		default:
			logger.Fatal().Msg("no whiteboard host found on the local network")
		}
	}

	if addr == "" {
		runHost(logger, board, *nameFlag, *portFlag)
	} else {
		runParticipant(logger, board, *nameFlag, addr)
	}
}

func runHost(logger zerolog.Logger, board *canvas.Board, name, port string) {
	logger.Info().Str("name", name).Msg("starting as host")

	h := hub.New(name, board, logger)
	h.OnChat = func(m wire.Chat) {
		fmt.Printf("%s: %s\n", m.Author, m.Text)
	}
	h.OnPresence = func(names []string) {
		logger.Info().Strs("participants", names).Msg("presence updated")
	}

	srv := &http.Server{Addr: ":" + port, Handler: h.Router()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	if p, err := strconv.Atoi(port); err == nil {
		if mdnsServer, err := discover.Advertise(p); err != nil {
			logger.Warn().Err(err).Msg("mDNS advertise failed; joiners must use -connect")
		} else {
			defer mdnsServer.Shutdown()
		}
	}
	if ip, err := discover.OutgoingIP(); err == nil {
		logger.Info().Str("addr", ip+":"+port).Msg("share this address with participants")
	}

	// The host's chat input; drawing intents come from the display
	// layer through hub.Draw.
	go chatInput(func(text string) { h.Chat(text) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// Failing to bind the port is the one fatal error.
		logger.Fatal().Err(err).Msg("server failed")
	case <-quit:
	}

	logger.Info().Msg("shutting down")
	h.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func runParticipant(logger zerolog.Logger, board *canvas.Board, name, addr string) {
	logger.Info().Str("name", name).Str("addr", addr).Msg("joining whiteboard")

	c := client.New(name, board, logger)
	c.OnChat = func(m wire.Chat) {
		fmt.Printf("%s: %s\n", m.Author, m.Text)
	}
	c.OnPresence = func(names []string) {
		logger.Info().Strs("participants", names).Msg("presence updated")
	}
	disconnected := make(chan struct{})
	c.OnDisconnect = func(err error) {
		logger.Warn().Err(err).Msg("lost connection to host; local canvases kept")
		close(disconnected)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := c.Join(ctx, addr)
	cancel()
	if errors.Is(err, client.ErrNameTaken) {
		logger.Fatal().Err(err).Msg("pick a different display name and reconnect")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("could not join")
	}

	go chatInput(func(text string) {
		fmt.Printf("%s: %s\n", name, text) // local-first display
		if err := c.Chat(text); err != nil {
			logger.Warn().Err(err).Msg("chat send failed")
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		c.Close()
	case <-disconnected:
	}
}

// chatInput reads stdin lines as chat intents until EOF.
func chatInput(send func(string)) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			send(line)
		}
	}
}
