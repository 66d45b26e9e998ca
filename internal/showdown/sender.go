package showdown

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
)

// Writer is the frame sink a Sender drains into, normally a *Conn.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// Sender serializes outbound frames behind a rate limiter so the server's flood
// protection never trips.
type Sender struct {
	w       Writer
	limiter *rate.Limiter
	queue   chan string
	dryrun  bool
	done    chan struct{}
}

const sendQueueSize = 256

func NewSender(w Writer, interval time.Duration, dryrun bool) *Sender {
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	return &Sender{
		w:       w,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		queue:   make(chan string, sendQueueSize),
		dryrun:  dryrun,
		done:    make(chan struct{}),
	}
}

// Run drains the queue until ctx is done.
func (s *Sender) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			if s.dryrun {
				obslog.L().Info("showdown_send_dryrun", zap.String("frame", frame))
				continue
			}
			if err := s.w.Write(ctx, frame); err != nil {
				obslog.L().Warn("showdown_send_error", zap.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (s *Sender) Done() <-chan struct{} { return s.done }

// Enqueue queues a raw frame. A full queue drops the frame.
func (s *Sender) Enqueue(frame string) {
	select {
	case s.queue <- frame:
	default:
		obslog.L().Warn("showdown_send_queue_full")
	}
}

// Say queues text for room.
func (s *Sender) Say(room, text string) { s.Enqueue(formatSay(room, text)) }
