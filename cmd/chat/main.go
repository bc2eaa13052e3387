// Command chat runs the booking assistant as a terminal conversation against
// the same engine, booking log and notifier the API server uses.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/bookings"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/conversation"
	"github.com/wolfman30/booking-assistant/internal/notify"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const banner = `📅 Appointment Booking Assistant
Welcome! I'm here to help you book an appointment. Let's get started!
Commands: /details shows the booking so far, /reset starts a new booking, /quit exits.`

// chatService is the slice of session.Service the REPL drives.
type chatService interface {
	Handle(ctx context.Context, id, utterance string) (*session.TurnResult, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Reset(ctx context.Context, id string) (*session.Session, error)
}

func main() {
	if err := appconfig.LoadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize assistant", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, os.Stdin, os.Stdout, svc, uuid.NewString()); err != nil {
		logger.Error("chat ended with error", "error", err)
		os.Exit(1)
	}
}

// buildService wires the assistant with an in-process session store; one
// terminal is one session.
func buildService(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*session.Service, func(), error) {
	cleanup := func() {}
	loadAWS := mainconfig.LazyAWSLoader(cfg)

	pool, err := mainconfig.ConnectPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, cleanup, err
	}
	if pool != nil {
		cleanup = pool.Close
	}

	llm, err := mainconfig.BuildLLMClient(ctx, cfg, loadAWS, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	store, err := mainconfig.BuildBookingStore(ctx, cfg, pool, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	sender, err := mainconfig.BuildEmailSender(ctx, cfg, loadAWS, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	engine := conversation.NewOrchestrator(llm.Client, booking.NewValidator(cfg.Location()),
		conversation.WithProvider(llm.Provider, llm.Model),
		conversation.WithEngineTimeout(cfg.EngineTimeout),
		conversation.WithSlotLister(store),
		conversation.WithLogger(logger),
	)
	finalizer := bookings.NewFinalizer(store,
		notify.NewService(sender, notify.Config{BusinessName: cfg.BusinessName, BusinessEmail: cfg.BusinessEmail}, logger),
		bookings.WithFinalizeLogger(logger),
	)
	return session.NewService(session.NewMemoryStore(0), engine, finalizer, logger), cleanup, nil
}

// run reads one utterance per line until EOF, /quit, or ctx is cancelled.
func run(ctx context.Context, in io.Reader, out io.Writer, svc chatService, sessionID string) error {
	fmt.Fprintln(out, banner)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "\nyou> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if _, err := svc.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "assistant> Started a new booking.")
			continue
		case "/details":
			sess, err := svc.Get(ctx, sessionID)
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				return err
			}
			printDetails(out, sess)
			continue
		}

		res, err := svc.Handle(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "assistant> Sorry, I encountered an error: %v. Please try again.\n", err)
			continue
		}
		for _, reply := range res.Replies {
			fmt.Fprintf(out, "assistant> %s\n", reply)
		}
	}
}

var titleCase = cases.Title(language.English)

func printDetails(out io.Writer, sess *session.Session) {
	fmt.Fprintln(out, "Current Booking Details")
	if sess == nil || sess.Record.IsEmpty() {
		fmt.Fprintln(out, "  No booking details yet.")
		return
	}
	for _, f := range booking.AllFields {
		if v := sess.Record.Get(f); v != "" {
			fmt.Fprintf(out, "  %s: %s\n", titleCase.String(string(f)), v)
		}
	}
}
