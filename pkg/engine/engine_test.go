package engine

import (
	"bytes"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/james-see/textseq/pkg/sequencer"
	"github.com/james-see/textseq/pkg/session"
)

type recordingSink struct {
	mu       sync.Mutex
	triggers []sequencer.SoundHandle
}

func (r *recordingSink) Trigger(h sequencer.SoundHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, h)
}

func newEngine(t *testing.T, st session.State) (*Engine, *recordingSink, *bytes.Buffer) {
	t.Helper()
	pitched, err := sequencer.NewPitchedMapper(sequencer.DefaultPitchAlphabet)
	if err != nil {
		t.Fatalf("NewPitchedMapper() error = %v", err)
	}
	percussion, err := sequencer.NewPercussionMapper(sequencer.DefaultPercussionAlphabet)
	if err != nil {
		t.Fatalf("NewPercussionMapper() error = %v", err)
	}
	var logs bytes.Buffer
	logger := log.New(&logs)
	sink := &recordingSink{}
	return New(pitched, percussion, session.NewStore(st, logger), sink, logger), sink, &logs
}

func TestParseTrackID(t *testing.T) {
	tests := []struct {
		in   string
		want TrackID
		ok   bool
	}{
		{"piano", Piano, true},
		{"BEAT", Beat, true},
		{"drums", "", false},
	}
	for _, tt := range tests {
		got, err := ParseTrackID(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseTrackID(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestStepTriggersBothTracks(t *testing.T) {
	e, sink, _ := newEngine(t, session.State{Piano: "aS", Beat: "q\nq"})

	got := e.Step()
	want := []sequencer.SoundHandle{"mf/C4", "beat/q", "beat/q"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Step() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(sink.triggers, want) {
		t.Errorf("sink triggered %v, want %v", sink.triggers, want)
	}

	got = e.Step()
	want = []sequencer.SoundHandle{"ff/D4", "beat/q", "beat/q"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("second Step() = %v, want %v", got, want)
	}
}

func TestStepKeepsTracksInPhase(t *testing.T) {
	e, _, _ := newEngine(t, session.State{Piano: "", Beat: "abc"})
	e.Step()
	e.Step()

	f := e.Render()
	if f.Step != 2 {
		t.Errorf("Render().Step = %d, want 2", f.Step)
	}
	if !f.Beat[0].Cells[2].Active {
		t.Errorf("beat cell 2 should be active: %+v", f.Beat[0].Cells)
	}

	e.SetText(Piano, "zxc")
	if !e.Render().Piano[0].Cells[2].Active {
		t.Error("piano track should join at the shared step")
	}
}

func TestSyncFlagIsReadAtTickTime(t *testing.T) {
	e, _, _ := newEngine(t, session.State{Beat: "ab\nabcd"})
	e.Step()
	e.Step()

	if e.Render().Beat[0].Cells[0].Active != true {
		t.Error("independent mode: line 0 should wrap to index 0 at step 2")
	}

	e.SetSync(true)
	f := e.Render()
	for _, c := range f.Beat[0].Cells {
		if c.Active {
			t.Errorf("sync mode: line 0 has no index 2, got active cell %q", c.Char)
		}
	}
	if !f.Beat[1].Cells[2].Active {
		t.Error("sync mode: line 1 should be at index 2")
	}
}

func TestRenderIdempotent(t *testing.T) {
	e, _, _ := newEngine(t, session.State{Piano: "asdf ghj", Beat: "q  q"})
	e.Step()

	a, b := e.Render(), e.Render()
	if !reflect.DeepEqual(a, b) || a.String() != b.String() {
		t.Error("Render() is not idempotent")
	}
}

func TestFrameString(t *testing.T) {
	e, _, _ := newEngine(t, session.State{Piano: "a s", Beat: ""})
	e.Step()

	want := "piano:\n  a[·]s\nbeat:\n"
	if got := e.Render().String(); got != want {
		t.Errorf("Frame.String() = %q, want %q", got, want)
	}
}

func TestLoadShareCode(t *testing.T) {
	e, _, logs := newEngine(t, session.State{Piano: "aaa", Beat: "bbb"})

	if err := e.Load("garbage!!"); err == nil {
		t.Fatal("Load() should reject garbage")
	}
	if e.Text(Piano) != "aaa" || e.Text(Beat) != "bbb" {
		t.Errorf("texts changed after failed Load: %q / %q", e.Text(Piano), e.Text(Beat))
	}
	if !strings.Contains(logs.String(), "ignoring share code") {
		t.Errorf("failed Load should be logged, log = %q", logs.String())
	}

	code, err := session.Encode(session.State{Piano: "zz", Beat: "x", Sync: true})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := e.Load(code); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if e.Text(Piano) != "zz" || e.Text(Beat) != "x" || !e.Render().Sync {
		t.Errorf("Load() did not apply state: %q / %q", e.Text(Piano), e.Text(Beat))
	}

	shared, err := e.Share()
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if shared != code {
		t.Errorf("Share() = %q, want %q", shared, code)
	}
}

func TestTransportDrivesStep(t *testing.T) {
	e, sink, _ := newEngine(t, session.State{Beat: "a"})

	e.Clock().Fire()
	if len(sink.triggers) != 0 {
		t.Fatalf("paused clock triggered %v", sink.triggers)
	}

	if !e.TogglePlay() {
		t.Fatal("TogglePlay() should start the transport")
	}
	e.Clock().Fire()
	e.Clock().Fire()
	if len(sink.triggers) != 2 {
		t.Errorf("sink triggered %d times, want 2", len(sink.triggers))
	}
	if !e.Store().Playing() {
		t.Error("store should report playing")
	}

	e.SetPlaying(false)
	e.Clock().Fire()
	if len(sink.triggers) != 2 {
		t.Errorf("paused transport kept triggering: %d", len(sink.triggers))
	}
}

func TestUpdatesCoalesce(t *testing.T) {
	e, _, _ := newEngine(t, session.State{})
	e.Step()
	e.Step()
	e.ToggleSync()

	select {
	case <-e.Updates():
	default:
		t.Fatal("expected a pending update")
	}
	select {
	case <-e.Updates():
		t.Fatal("updates should coalesce into one signal")
	default:
	}
}

func TestHandles(t *testing.T) {
	pitched, _ := sequencer.NewPitchedMapper(sequencer.DefaultPitchAlphabet)
	percussion, _ := sequencer.NewPercussionMapper(sequencer.DefaultPercussionAlphabet)

	if n := len(Handles(pitched, percussion)); n != 42+26 {
		t.Errorf("Handles() returned %d handles, want %d", n, 42+26)
	}
}

func TestLoadAndSetTextStayConsistent(t *testing.T) {
	e, _, _ := newEngine(t, session.State{})
	code, err := session.Encode(session.State{Piano: "yyy", Beat: "b", Sync: true})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = e.Load(code)
		}()
		go func() {
			defer wg.Done()
			e.SetText(Piano, "xxx")
		}()
		go func() {
			defer wg.Done()
			e.Step()
		}()
		wg.Wait()

		if got, stored := e.Text(Piano), e.Store().State().Piano; got != stored {
			t.Fatalf("iteration %d: track text %q, store text %q", i, got, stored)
		}
		shared, err := e.Share()
		if err != nil {
			t.Fatalf("Share() error = %v", err)
		}
		st, err := session.Decode(shared)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if st.Piano != e.Text(Piano) {
			t.Fatalf("iteration %d: shared piano %q, playing %q", i, st.Piano, e.Text(Piano))
		}
	}
}
