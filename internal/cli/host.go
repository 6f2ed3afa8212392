package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mhrnqaruni/ata-live-client/internal/api"
	"github.com/Mhrnqaruni/ata-live-client/internal/config"
	"github.com/Mhrnqaruni/ata-live-client/internal/live"
)

// newHostCmd runs the teacher console: create a session, start it, and
// steer it with line commands while pushes stream in.
func newHostCmd(configPath *string) *cobra.Command {
	var quizID string
	var classID string
	var autoAdvance bool
	var cooldown int

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Create and run a live session as the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, quizID, classID, autoAdvance, cooldown)
		},
	}

	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id to run")
	cmd.Flags().StringVar(&classID, "class", "", "class id for roster reconciliation")
	cmd.Flags().BoolVar(&autoAdvance, "auto-advance", false, "advance questions automatically")
	cmd.Flags().IntVar(&cooldown, "cooldown", 10, "cooldown seconds between questions")
	return cmd
}

func runHost(ctx context.Context, cfg config.Config, quizID, classID string, autoAdvance bool, cooldown int) error {
	if cfg.API.Token == "" {
		return errors.New("host credential missing: set api.token or QUIZ_API_TOKEN")
	}

	rest := api.NewClient(cfg.API.BaseURL, cfg.API.Token)
	session, err := rest.CreateSession(ctx, api.CreateSessionRequest{
		QuizID:          quizID,
		ClassID:         classID,
		AutoAdvance:     autoAdvance,
		CooldownSeconds: cooldown,
	})
	if err != nil {
		return err
	}
	fmt.Printf("session %s created, room code %s\n", session.ID, session.RoomCode)

	connCfg := live.DefaultConnConfig(cfg.API.BaseURL)
	connCfg.ReconnectDelay = config.Duration(cfg.Live.ReconnectDelay, connCfg.ReconnectDelay)

	var roster *live.RosterView
	if session.ClassID != "" {
		roster = live.NewRosterView(rest, session.ID, session.ClassID, log.Logger)
	}

	client := live.NewClient(live.ClientOptions{
		SessionID:  session.ID,
		Role:       live.RoleHost,
		Credential: live.Credential{Role: live.RoleHost, Token: cfg.API.Token},
		ConnConfig: connCfg,
		API:        rest,
		Roster:     roster,
		Log:        log.Logger,

		LeaderboardDisplaySeconds: int(config.Duration(cfg.Live.LeaderboardDisplay, 0) / time.Second),
	})
	client.Seed(session)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return client.Run(groupCtx) })
	group.Go(func() error { renderLoop(groupCtx, client, live.RoleHost); return nil })
	// stdin has no cancellable read; the loop dies with the process.
	go hostCommandLoop(groupCtx, cancel, rest, client, session.ID)

	fmt.Println("commands: start | next | end | cancel | auto on|off [sec] | roster | export | quit")
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// hostCommandLoop turns console lines into REST lifecycle commands.
// Rejections are printed and never retried automatically.
func hostCommandLoop(ctx context.Context, quit context.CancelFunc, rest *api.Client, client *live.Client, sessionID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(strings.ToLower(scanner.Text()))
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "start":
			_, err = rest.StartSession(ctx, sessionID)
		case "next":
			_, err = rest.NextQuestion(ctx, sessionID)
		case "end":
			_, err = rest.EndSession(ctx, sessionID)
		case "cancel":
			_, err = rest.CancelSession(ctx, sessionID)
		case "auto":
			enabled := len(fields) > 1 && fields[1] == "on"
			seconds := 0
			if len(fields) > 2 {
				seconds, _ = strconv.Atoi(fields[2])
			}
			err = rest.SetAutoAdvance(ctx, sessionID, enabled, seconds)
		case "roster":
			printRoster(client)
		case "export":
			err = exportResults(ctx, rest, sessionID)
		case "quit":
			quit()
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}

		var rejection *api.CommandError
		if errors.As(err, &rejection) {
			fmt.Printf("rejected: %s\n", rejection.Message)
		} else if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printRoster(client *live.Client) {
	roster := client.Roster()
	if roster == nil || !roster.Enabled() {
		fmt.Println("no class linked to this session")
		return
	}
	snap := roster.Snapshot()
	fmt.Printf("joined %d/%d (%.0f%%)\n", snap.Joined, snap.Expected, snap.JoinRate)
	for _, outsider := range snap.Outsiders {
		fmt.Printf("  outsider: %s (%s)\n", outsider.DisplayName, outsider.Reason)
	}
}

func exportResults(ctx context.Context, rest *api.Client, sessionID string) error {
	data, err := rest.ExportResults(ctx, sessionID)
	if err != nil {
		return err
	}
	name := "results-" + sessionID + ".csv"
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("results written to %s\n", name)
	return nil
}
