package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/auth"
	"maipocket-quiz/internal/config"
	"maipocket-quiz/internal/domain"
)

// NewPlayCmd plays one session in the terminal against the configured adapters.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		mode, kind, category, value string
		token, device               string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			player := auth.Anonymous(device)
			if token != "" {
				p, ok := rt.verifier.PlayerFromToken(token, time.Now())
				if !ok {
					return errors.New("token is malformed, expired or not verifiable with auth.jwt_secret")
				}
				player = p
			}
			fmt.Fprintf(cmd.OutOrStdout(), "playing as %s\n", playerLabel(player))

			req := app.StartRequest{
				Mode:   domain.Mode(mode),
				Kind:   domain.MediaKind(kind),
				Filter: domain.Filter{Category: domain.Category(category), Value: value},
			}
			return playSession(ctx, rt.service, player, req, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeCasual), "ranked or casual")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindVisual), "visual (jackets) or audio (previews)")
	cmd.Flags().StringVar(&category, "category", string(domain.CategoryAll), "all, level, genre, version or chart_type")
	cmd.Flags().StringVar(&value, "value", "", "filter value for the category")
	cmd.Flags().StringVar(&token, "token", "", "bearer token of a signed-in player")
	cmd.Flags().StringVar(&device, "device", "", "device id for anonymous play")
	return cmd
}

// playSession renders session snapshots to out and reads one choice number per
// question from in. A closed input abandons the session.
func playSession(ctx context.Context, svc *app.SessionService, player domain.Player, req app.StartRequest, in io.Reader, out io.Writer) error {
	st, err := svc.Start(ctx, player, req)
	if err != nil {
		return err
	}
	id := st.SessionID
	fmt.Fprintf(out, "%s %s quiz, %d questions, %d lives\n", st.Mode, st.Kind, len(st.Questions), st.LivesRemaining)

	states, cancel, err := svc.Subscribe(ctx, player, id)
	if err != nil {
		return err
	}
	defer cancel()

	want := make(chan struct{})
	lines := make(chan string)
	go readLines(ctx, in, want, lines)

	shown := -1
	var current domain.Question
	for {
		select {
		case <-ctx.Done():
			_ = svc.Abandon(context.Background(), player, id)
			return ctx.Err()

		case st, ok := <-states:
			if !ok {
				return errors.Wrap(domain.ErrSessionNotFound, id)
			}
			if st.Terminal {
				return printResult(ctx, svc, player, id, st, out)
			}
			if st.Phase != domain.PhasePlaying || st.Locked || st.CurrentIndex == shown || !mediaSettled(st) {
				continue
			}
			shown = st.CurrentIndex
			current = st.Questions[shown]
			printQuestion(out, st, current)
			select {
			case want <- struct{}{}:
			case <-ctx.Done():
			}

		case line, ok := <-lines:
			if !ok {
				_ = svc.Abandon(context.Background(), player, id)
				fmt.Fprintln(out, "input closed, session abandoned")
				return nil
			}
			choice, perr := parseChoice(line, current)
			if perr != nil {
				fmt.Fprintf(out, "  %v\n", perr)
				select {
				case want <- struct{}{}:
				case <-ctx.Done():
				}
				continue
			}
			outcome, _, err := svc.Answer(ctx, player, id, choice)
			if err != nil {
				if errors.Is(err, domain.ErrAnswerLocked) || errors.Is(err, domain.ErrSessionTerminal) {
					continue
				}
				return err
			}
			printOutcome(out, outcome)
		}
	}
}

// readLines sends one line from in for every request on want.
func readLines(ctx context.Context, in io.Reader, want <-chan struct{}, lines chan<- string) {
	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			return
		case <-want:
		}
		if !scanner.Scan() {
			close(lines)
			return
		}
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func mediaSettled(st domain.SessionState) bool {
	m := st.Media[st.Questions[st.CurrentIndex].ID]
	return m.Ready || m.Degraded
}

func parseChoice(line string, q domain.Question) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(q.Choices) {
		return "", errors.Errorf("enter a number between 1 and %d", len(q.Choices))
	}
	return q.Choices[n-1], nil
}

func printQuestion(out io.Writer, st domain.SessionState, q domain.Question) {
	fmt.Fprintf(out, "\nQuestion %d/%d", st.CurrentIndex+1, len(st.Questions))
	if st.Mode == domain.ModeRanked {
		fmt.Fprintf(out, "  streak %d  lives %d", st.AccumulatedStreak, st.LivesRemaining)
	}
	fmt.Fprintln(out)
	if m := st.Media[q.ID]; m.Degraded {
		fmt.Fprintln(out, "  (media unavailable)")
	} else {
		fmt.Fprintf(out, "  %s\n", q.MediaURL)
	}
	for i, c := range q.Choices {
		fmt.Fprintf(out, "  %d) %s\n", i+1, c)
	}
	if st.Deadline != nil {
		fmt.Fprintf(out, "  answer within %s\n", time.Until(*st.Deadline).Round(time.Second))
	}
}

func printOutcome(out io.Writer, o domain.AnswerOutcome) {
	switch {
	case o.Correct:
		fmt.Fprintln(out, "  correct!")
	case o.TimedOut:
		fmt.Fprintf(out, "  time's up, it was %s\n", o.CorrectAnswer)
	default:
		fmt.Fprintf(out, "  wrong, it was %s\n", o.CorrectAnswer)
	}
}

func printResult(ctx context.Context, svc *app.SessionService, player domain.Player, id string, st domain.SessionState, out io.Writer) error {
	if st.Phase == domain.PhaseAbandoned {
		fmt.Fprintln(out, "session abandoned")
		return nil
	}
	res, err := svc.Finish(ctx, player, id)
	if err != nil && !errors.Is(err, domain.ErrTransport) {
		return err
	}
	fmt.Fprintf(out, "\nResult: %d correct\n", st.Score)
	if st.Mode == domain.ModeRanked {
		fmt.Fprintf(out, "  streak %d, high score %d", st.AccumulatedStreak, res.HighScore)
		if res.IsNewRecord {
			fmt.Fprint(out, " (new record)")
		}
		fmt.Fprintln(out)
	}
	if res.Degraded {
		fmt.Fprintln(out, "  score could not be saved")
	}
	return nil
}
