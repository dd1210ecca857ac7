package commands

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"burning-text-bot/internal/burning"
	"burning-text-bot/internal/cache"
)

type sent struct {
	kind    string
	chatID  int64
	replyTo int
	text    string
	name    string
	data    []byte
}

type fakeReplier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeReplier) SendText(chatID int64, replyTo int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{kind: "text", chatID: chatID, replyTo: replyTo, text: text})
	return nil
}

func (f *fakeReplier) SendAnimation(chatID int64, replyTo int, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{kind: "animation", chatID: chatID, replyTo: replyTo, name: name, data: data})
	return nil
}

func (f *fakeReplier) SendPhoto(chatID int64, replyTo int, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{kind: "photo", chatID: chatID, replyTo: replyTo, name: name, data: data})
	return nil
}

func (f *fakeReplier) only(t *testing.T) sent {
	t.Helper()
	if len(f.sent) != 1 {
		t.Fatalf("expected exactly one reply, got %d: %+v", len(f.sent), f.sent)
	}
	return f.sent[0]
}

type fakeGenerator struct {
	data  []byte
	err   error
	panic bool
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) ([]byte, error) {
	g.calls++
	if g.panic {
		panic("boom")
	}
	return g.data, g.err
}

type countingObserver struct {
	messages int
	commands int
	reasons  []string
}

func (o *countingObserver) MessageHandled(int64, string) { o.messages++ }
func (o *countingObserver) CommandProcessed()            { o.commands++ }
func (o *countingObserver) GenerationObserved(_ time.Duration, reason string) {
	o.reasons = append(o.reasons, reason)
}

type fakeReporter struct{ errs []error }

func (r *fakeReporter) CaptureException(err error) { r.errs = append(r.errs, err) }

func newTestHandler(t *testing.T, g Generator, opts ...Option) (*Handler, *fakeReplier, *cache.Cache) {
	t.Helper()
	c := cache.Load(filepath.Join(t.TempDir(), "cache.json"))
	r := &fakeReplier{}
	return NewHandler(g, c, r, opts...), r, c
}

func textMessage(text string) Incoming {
	return Incoming{ChatID: 10, MessageID: 77, Text: text}
}

func TestHandle_Start(t *testing.T) {
	g := &fakeGenerator{err: &burning.Error{Kind: burning.KindTimeout}}
	h, r, _ := newTestHandler(t, g)

	h.Handle(context.Background(), Incoming{ChatID: 10, MessageID: 1, Text: "/start", Command: "start"})

	got := r.only(t)
	if got.kind != "text" || got.text != msgStart {
		t.Fatalf("unexpected reply %+v", got)
	}
	if g.calls != 0 {
		t.Fatalf("start must not call the generator")
	}
}

func TestHandle_Success(t *testing.T) {
	gif := []byte("GIF89a")
	h, r, _ := newTestHandler(t, &fakeGenerator{data: gif})

	h.Handle(context.Background(), textMessage("fire"))

	got := r.only(t)
	if got.kind != "animation" || got.replyTo != 77 || got.chatID != 10 {
		t.Fatalf("unexpected reply %+v", got)
	}
	if !bytes.Equal(got.data, gif) {
		t.Fatalf("unexpected animation bytes %q", got.data)
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}\.gif$`).MatchString(got.name) {
		t.Fatalf("unexpected file name %q", got.name)
	}
}

func TestHandle_ErrorReplies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &burning.Error{Kind: burning.KindTimeout}, "The request timed out. Please try again later."},
		{"api", &burning.Error{Kind: burning.KindAPI, StatusCode: 500}, "API error: 500"},
		{"request", &burning.Error{Kind: burning.KindRequest, Msg: "connection reset"}, "Request failed: connection reset"},
		{"other", &burning.Error{Kind: burning.KindOther, Msg: "missing render location"}, "Error: missing render location"},
		{"unexpected", fmt.Errorf("disk on fire"), "An unexpected error occurred: disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, r, c := newTestHandler(t, &fakeGenerator{err: tt.err})

			h.Handle(context.Background(), textMessage("fire"))

			got := r.only(t)
			if got.kind != "text" || got.text != tt.want || got.replyTo != 77 {
				t.Fatalf("unexpected reply %+v, want %q", got, tt.want)
			}
			if s := c.Stats(time.Now()); s.Total != 0 {
				t.Fatalf("cache must be untouched, got %+v", s)
			}
		})
	}
}

func TestHandle_EmptyTextIgnored(t *testing.T) {
	g := &fakeGenerator{data: []byte("x")}
	h, r, _ := newTestHandler(t, g)

	h.Handle(context.Background(), textMessage(""))

	if len(r.sent) != 0 || g.calls != 0 {
		t.Fatalf("expected no reply and no generation, got %+v", r.sent)
	}
}

func TestHandle_UnknownCommandIsRendered(t *testing.T) {
	g := &fakeGenerator{data: []byte("x")}
	h, r, _ := newTestHandler(t, g)

	h.Handle(context.Background(), Incoming{ChatID: 1, MessageID: 2, Text: "/hot", Command: "hot"})

	if g.calls != 1 || r.only(t).kind != "animation" {
		t.Fatalf("expected unknown command text to be rendered")
	}
}

func TestHandle_PanicIsRecovered(t *testing.T) {
	reporter := &fakeReporter{}
	h, r, _ := newTestHandler(t, &fakeGenerator{panic: true}, WithErrorReporter(reporter))

	h.Handle(context.Background(), textMessage("fire"))

	got := r.only(t)
	if got.text != "An unexpected error occurred: boom" {
		t.Fatalf("unexpected reply %q", got.text)
	}
	if len(reporter.errs) != 1 {
		t.Fatalf("expected panic to be reported")
	}
}

func TestHandle_Observer(t *testing.T) {
	obs := &countingObserver{}
	h, _, _ := newTestHandler(t, &fakeGenerator{err: &burning.Error{Kind: burning.KindAPI, StatusCode: 502}}, WithObserver(obs))

	h.Handle(context.Background(), textMessage("fire"))
	h.Handle(context.Background(), Incoming{ChatID: 1, Command: "start"})

	if obs.messages != 1 || obs.commands != 1 {
		t.Fatalf("unexpected counts %+v", obs)
	}
	if len(obs.reasons) != 1 || obs.reasons[0] != "api" {
		t.Fatalf("unexpected reasons %v", obs.reasons)
	}
}

func TestHandle_Stats(t *testing.T) {
	h, r, c := newTestHandler(t, &fakeGenerator{})
	now := time.Unix(1_700_000_000, 0)
	h.now = func() time.Time { return now }

	c.Record("https://img/a.gif", now.Add(-5*time.Minute))
	c.Record("https://img/b.gif", now.Add(-3*time.Hour))

	h.Handle(context.Background(), Incoming{ChatID: 1, MessageID: 3, Text: "/stats", Command: "stats"})

	got := r.only(t).text
	for _, want := range []string{"generated: 2", "last hour: 1", "5 minutes ago"} {
		if !strings.Contains(got, want) {
			t.Fatalf("stats reply %q does not contain %q", got, want)
		}
	}
}

func TestHandle_StatsEmpty(t *testing.T) {
	h, r, _ := newTestHandler(t, &fakeGenerator{})

	h.Handle(context.Background(), Incoming{ChatID: 1, Command: "stats"})

	if got := r.only(t).text; !strings.Contains(got, "Latest: never") {
		t.Fatalf("unexpected stats reply %q", got)
	}
}

func TestHandle_Chart(t *testing.T) {
	h, r, c := newTestHandler(t, &fakeGenerator{})
	c.Record("https://img/a.gif", time.Now())

	h.Handle(context.Background(), Incoming{ChatID: 1, MessageID: 9, Command: "chart"})

	got := r.only(t)
	if got.kind != "photo" || !bytes.HasPrefix(got.data, []byte("\x89PNG")) {
		t.Fatalf("expected a PNG photo reply, got %s", got.kind)
	}
}
