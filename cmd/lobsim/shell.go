package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/lobsim/pkg/app/exchange"
)

var errExit = errors.New("exit")

// shell runs driver commands against one exchange session.
type shell struct {
	ex     *exchange.Exchange
	out    io.Writer
	log    *zap.SugaredLogger
	prompt bool
}

// run reads commands until EOF, exit, or ctx is done. Bad input is reported
// and skipped; only I/O and session failures end the loop with an error.
// Lines are read on a separate goroutine so cancellation does not wait for
// the next line.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if s.prompt {
			fmt.Fprint(s.out, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			s.log.Infow("shell_interrupted", "err", ctx.Err())
			return nil
		case err := <-readErr:
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			continue
		}
		if err := s.exec(cmd); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
			s.log.Debugw("command_failed", "line", line, "err", err)
		}
	}
}

func (s *shell) exec(c command) error {
	switch c.verb {
	case verbOrder:
		var (
			out orderbook.MatchOutcome
			err error
		)
		if c.kind == orderbook.Market {
			out, err = s.ex.SubmitMarket(c.side, c.tif, c.qty)
		} else {
			out, err = s.ex.SubmitLimit(c.side, c.tif, c.price, c.qty)
		}
		if err != nil {
			return err
		}
		renderOutcome(s.out, out)
	case verbCancel:
		if !s.ex.Cancel(c.id) {
			return fmt.Errorf("order #%d is not resting", c.id)
		}
		fmt.Fprintf(s.out, "canceled #%d\n", c.id)
	case verbDay:
		if err := s.ex.SimulateDay(); err != nil {
			return err
		}
		renderBook(s.out, s.ex.Snapshot())
	case verbBook:
		renderBook(s.out, s.ex.Snapshot())
	case verbBalance:
		renderBalance(s.out, s.ex.Market().BaseAsset, s.ex.Portfolio().Snapshot())
	case verbTape:
		fills, err := s.ex.RecentFills(c.n)
		if err != nil {
			return err
		}
		renderTape(s.out, fills)
	case verbFlow:
		executed, err := s.ex.Flow(c.n)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%d orders from other participants, %d traded\n", c.n, executed)
	case verbPause:
		s.ex.Market().Pause()
		fmt.Fprintf(s.out, "%s paused\n", s.ex.Market().Symbol)
	case verbResume:
		s.ex.Market().Resume()
		fmt.Fprintf(s.out, "%s resumed\n", s.ex.Market().Symbol)
	case verbHelp:
		fmt.Fprintln(s.out, usage)
	case verbExit:
		return errExit
	}
	return nil
}
