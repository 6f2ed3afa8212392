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
	"github.com/Mhrnqaruni/ata-live-client/internal/models"
)

// newPlayCmd runs the participant console: join a session by room code
// and answer questions from stdin.
func newPlayCmd(configPath *string) *cobra.Command {
	var roomCode string
	var displayName string
	var studentID string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a live session as a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cfg, roomCode, displayName, studentID)
		},
	}

	cmd.Flags().StringVar(&roomCode, "room", "", "room code to join (required)")
	cmd.Flags().StringVar(&displayName, "name", "", "display name (required)")
	cmd.Flags().StringVar(&studentID, "student", "", "student id, if enrolled")
	cmd.MarkFlagRequired("room")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runPlay(ctx context.Context, cfg config.Config, roomCode, displayName, studentID string) error {
	// Guest flows carry no bearer token; the join handshake issues a
	// session-scoped guest token instead.
	rest := api.NewClient(cfg.API.BaseURL, "")
	joined, err := rest.Join(ctx, api.JoinRequest{
		RoomCode:    roomCode,
		DisplayName: displayName,
		StudentID:   studentID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("joined %q as %s\n", joined.Session.RoomCode, displayName)

	connCfg := live.DefaultConnConfig(cfg.API.BaseURL)
	connCfg.ReconnectDelay = config.Duration(cfg.Live.ReconnectDelay, connCfg.ReconnectDelay)

	client := live.NewClient(live.ClientOptions{
		SessionID:  joined.Session.ID,
		Role:       live.RoleParticipant,
		Credential: live.Credential{Role: live.RoleParticipant, Token: joined.GuestToken},
		ConnConfig: connCfg,
		API:        rest,
		Log:        log.Logger,

		LeaderboardDisplaySeconds: int(config.Duration(cfg.Live.LeaderboardDisplay, 0) / time.Second),
	})
	client.Seed(joined.Session)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.SendJoin(roomCode, displayName, studentID); err != nil {
		log.Warn().Err(err).Msg("join announce failed")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return client.Run(groupCtx) })
	group.Go(func() error { renderLoop(groupCtx, client, live.RoleParticipant); return nil })
	// stdin has no cancellable read; the loop dies with the process.
	go answerLoop(groupCtx, cancel, client)

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// answerLoop reads answers from stdin and submits them for the current
// question. Input while no question is live, or after one answer is
// already in, is rejected with a message rather than queued.
func answerLoop(ctx context.Context, quit context.CancelFunc, client *live.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			quit()
			return
		}

		input, err := parseAnswer(client.Snapshot(), line)
		if err != nil {
			fmt.Printf("invalid answer: %v\n", err)
			continue
		}

		switch err := client.SubmitAnswer(input); {
		case errors.Is(err, live.ErrNoActiveQuestion):
			fmt.Println("no question is live right now")
		case errors.Is(err, live.ErrAlreadyAnswered):
			fmt.Println("already answered this question")
		case err != nil:
			fmt.Printf("submit failed: %v\n", err)
		default:
			fmt.Println("answer locked in")
		}
	}
}

func parseAnswer(snap live.SessionState, line string) (live.AnswerInput, error) {
	if snap.CurrentQuestion == nil {
		// Shape doesn't matter; SubmitAnswer rejects first.
		return live.AnswerInput{Text: line}, nil
	}

	switch snap.CurrentQuestion.QuestionType {
	case models.QuestionTypeMultipleChoice, models.QuestionTypePoll:
		index, err := strconv.Atoi(line)
		if err != nil {
			return live.AnswerInput{}, fmt.Errorf("expected an option number")
		}
		if index < 0 || index >= len(snap.CurrentQuestion.Options) {
			return live.AnswerInput{}, fmt.Errorf("option %d is out of range", index)
		}
		return live.AnswerInput{SelectedIndex: index}, nil

	case models.QuestionTypeTrueFalse:
		value, err := strconv.ParseBool(strings.ToLower(line))
		if err != nil {
			return live.AnswerInput{}, fmt.Errorf("expected true or false")
		}
		return live.AnswerInput{BoolValue: value}, nil

	default:
		return live.AnswerInput{Text: line}, nil
	}
}
