package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"reportbot/internal/domain"
)

var at = time.Date(2025, 9, 20, 8, 5, 0, 0, time.UTC)

func TestCardLayout(t *testing.T) {
	msg := ReportMessage(domain.DimensionCountry, at, "http://img.example/t.png", "https://cdn.example/f.png")
	data, err := json.Marshal(Card(msg))
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		CardsV2 []struct {
			Card struct {
				Header   struct{ Title string }
				Sections []struct {
					Widgets []map[string]json.RawMessage
				}
			}
		}
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.CardsV2) != 1 {
		t.Fatalf("cardsV2 len = %d, want 1", len(got.CardsV2))
	}
	c := got.CardsV2[0].Card
	if c.Header.Title != "Daily Report" {
		t.Errorf("title = %q", c.Header.Title)
	}
	widgets := c.Sections[0].Widgets
	if len(widgets) != 3 {
		t.Fatalf("widgets = %d, want 3", len(widgets))
	}
	for i, key := range []string{"textParagraph", "image", "buttonList"} {
		if _, ok := widgets[i][key]; !ok {
			t.Errorf("widget %d missing %s: %s", i, key, data)
		}
	}
	if !strings.Contains(string(widgets[1]["image"]), `"imageUrl":"https://img.example/t.png"`) {
		t.Errorf("thumbnail not upgraded to https: %s", widgets[1]["image"])
	}
	if !strings.Contains(string(widgets[2]["buttonList"]), "https://cdn.example/f.png") {
		t.Errorf("button does not link the full image: %s", widgets[2]["buttonList"])
	}
}

func TestCardTextOnly(t *testing.T) {
	data, _ := json.Marshal(Card(SuccessMessage(at)))
	s := string(data)
	if strings.Contains(s, "imageUrl") || strings.Contains(s, "buttonList") {
		t.Errorf("text-only card has extra widgets: %s", s)
	}
	if !strings.Contains(s, "2025-09-20 08:05:00") {
		t.Errorf("success text lacks timestamp: %s", s)
	}
}

func TestMessageTexts(t *testing.T) {
	fail := QualityFailMessage(at, 1_100_000, 1_200_000)
	for _, want := range []string{"Current NMV: 1,100,000", "Last Run NMV: 1,200,000", "first day of the month"} {
		if !strings.Contains(fail.Text, want) {
			t.Errorf("quality fail text missing %q:\n%s", want, fail.Text)
		}
	}

	abort := QualityAbortMessage(at, errors.New("database is locked"))
	stage := ErrorMessage(at, domain.StageRender, errors.New("font missing"))
	if abort.Title == stage.Title {
		t.Error("store abort and stage error should have different titles")
	}
	if !strings.Contains(abort.Text, "database is locked") || !strings.Contains(abort.Text, "infrastructure") {
		t.Errorf("abort text = %q", abort.Text)
	}
	if !strings.Contains(stage.Text, "Stage: render") || !strings.Contains(stage.Text, "font missing") {
		t.Errorf("stage text = %q", stage.Text)
	}
	if m := ErrorMessage(at, "", errors.New("x")); !strings.Contains(m.Text, "Stage: unknown") {
		t.Errorf("stage-less text = %q", m.Text)
	}

	pl := ProductLineMessage(at, "https://docs.google.com/spreadsheets/d/x")
	if pl.LinkURL == "" || pl.ImageURL != "" || !strings.Contains(pl.Text, "2025-09-20") {
		t.Errorf("product line message = %+v", pl)
	}
	if m := ReportMessage(domain.DimensionManager, at, "", ""); !strings.Contains(m.Text, "Manager") {
		t.Errorf("manager message text = %q", m.Text)
	}
}

type recorder struct {
	mu     sync.Mutex
	bodies []string
	ctypes []string
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, string(body))
		r.ctypes = append(r.ctypes, req.Header.Get("Content-Type"))
		r.mu.Unlock()
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte("rejected"))
		}
	}
}

func TestNotifyPostsToEveryURL(t *testing.T) {
	rec := &recorder{}
	a := httptest.NewServer(rec.handler(http.StatusOK))
	defer a.Close()
	b := httptest.NewServer(rec.handler(http.StatusOK))
	defer b.Close()

	n := NewWebhookNotifier(map[domain.Channel][]string{
		domain.ChannelMain: {a.URL, "", b.URL},
	})
	if err := n.Notify(context.Background(), domain.ChannelMain, SuccessMessage(at)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(rec.bodies) != 2 {
		t.Fatalf("posts = %d, want 2", len(rec.bodies))
	}
	for _, ct := range rec.ctypes {
		if ct != "application/json; charset=UTF-8" {
			t.Errorf("content type = %q", ct)
		}
	}
	if !strings.Contains(rec.bodies[0], `"cardsV2"`) {
		t.Errorf("body = %s", rec.bodies[0])
	}
}

func TestNotifyJoinsFailures(t *testing.T) {
	rec := &recorder{}
	bad := httptest.NewServer(rec.handler(http.StatusBadRequest))
	defer bad.Close()
	good := httptest.NewServer(rec.handler(http.StatusOK))
	defer good.Close()

	n := NewWebhookNotifier(map[domain.Channel][]string{
		domain.ChannelErrorLog: {bad.URL, good.URL},
	})
	err := n.Notify(context.Background(), domain.ChannelErrorLog, SuccessMessage(at))
	if err == nil {
		t.Fatal("expected error from rejecting webhook")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v, want status 400", err)
	}
	if len(rec.bodies) != 2 {
		t.Errorf("posts = %d, want 2 (failure must not stop the next URL)", len(rec.bodies))
	}
}

func TestNotifyUnknownChannel(t *testing.T) {
	n := NewWebhookNotifier(map[domain.Channel][]string{domain.ChannelMain: {""}})
	if err := n.Notify(context.Background(), domain.ChannelMain, Message{}); err == nil {
		t.Error("expected error for channel with only empty URLs")
	}
	if err := n.Notify(context.Background(), domain.ChannelSuccessLog, Message{}); err == nil {
		t.Error("expected error for unconfigured channel")
	}
}

func TestNotifyTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	n := NewWebhookNotifier(map[domain.Channel][]string{domain.ChannelMain: {slow.URL}}, WithTimeout(50*time.Millisecond))
	start := time.Now()
	if err := n.Notify(context.Background(), domain.ChannelMain, Message{Text: "x"}); err == nil {
		t.Error("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout not applied")
	}
}
