package mailfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-forum-accounts/mail"
)

var _ mail.Sender = (*Recorder)(nil)

// Recorder keeps every message it is given. It can stand in for a Dispatcher or a Sender.
type Recorder struct {
	mu       sync.Mutex
	messages []mail.Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(_ context.Context, msg mail.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *Recorder) Send(ctx context.Context, msg mail.Message) error {
	r.Dispatch(ctx, msg)
	return nil
}

func (r *Recorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.messages...)
}

// To returns the messages addressed to recipient
func (r *Recorder) To(recipient string) []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []mail.Message
	for _, m := range r.messages {
		if m.To == recipient {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}
