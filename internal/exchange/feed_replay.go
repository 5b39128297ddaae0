package exchange

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mbostrength-go/internal/metrics"
	"mbostrength-go/internal/signal"
)

func (f *Feed) runReplay(ctx context.Context, out chan<- signal.Event) error {
	if f.replayPath == "" {
		return errors.New("replay feed requires a path")
	}
	file, err := os.Open(f.replayPath)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer file.Close()

	var pace <-chan time.Time
	if f.replayPace > 0 {
		ticker := time.NewTicker(f.replayPace)
		defer ticker.Stop()
		pace = ticker.C
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line, sent := 0, 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		ev, err := DecodeEvent(raw, f.priceStep)
		if err != nil {
			metrics.EventsRejected.WithLabelValues("decode").Inc()
			f.log.Warn().Err(err).Int("line", line).Msg("skipping replay line")
			continue
		}
		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := emit(ctx, out, ev); err != nil {
			return err
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read replay: %w", err)
	}
	f.log.Info().Str("path", f.replayPath).Int("events", sent).Msg("replay finished")
	return nil
}
