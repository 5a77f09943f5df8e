package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []State{
		{},
		{Piano: "asdf", Beat: "q w e", Sync: true},
		{Piano: "zxc\nvbn\n\nQWE", Beat: "a\r\nb", Sync: false},
		{Piano: "<&>\"'\\ é 🎹", Beat: "\t", Sync: true},
	}

	for _, want := range tests {
		code, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v) error = %v", want, err)
		}
		got, err := Decode(code)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", code, err)
		}
		if got != want {
			t.Errorf("Decode(Encode(%+v)) = %+v", want, got)
		}
		again, err := Encode(got)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if again != code {
			t.Errorf("Encode(Decode(%q)) = %q", code, again)
		}
	}
}

func TestEncodeIsPrintable(t *testing.T) {
	code, err := Encode(State{Piano: "line1\nline2", Beat: "é", Sync: true})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, c := range code {
		if c < 0x21 || c > 0x7e {
			t.Fatalf("Encode() produced non-printable %q in %q", c, code)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"not base64 !!",
		"aGVsbG8",                                    // "hello"
		"W10",                                        // "[]"
		"eyJwIjoiYSJ9",                               // {"p":"a"}
		"eyJwIjoxLCJiIjoiIiwicyI6ZmFsc2V9",           // {"p":1,"b":"","s":false}
		"eyJwIjoiIiwiYiI6IiIsInMiOm51bGx9",           // {"p":"","b":"","s":null}
		"eyJwIjoiIiwiYiI6IiIsInMiOmZhbHNlLCJ4IjoxfQ", // {"p":"","b":"","s":false,"x":1}
		"eyJwIjpudWxsLCJiIjoiIiwicyI6dHJ1ZX0",        // {"p":null,"b":"","s":true}
	}

	for _, code := range tests {
		t.Run(code, func(t *testing.T) {
			_, err := Decode(code)
			if err == nil {
				t.Fatalf("Decode(%q) should fail", code)
			}
			if !errors.Is(err, ErrMalformedState) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedState", code, err)
			}
		})
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	tests := []State{
		{Piano: "a\xffb"},
		{Beat: "\xc3"},
	}
	for _, st := range tests {
		if code, err := Encode(st); err == nil {
			t.Errorf("Encode(%q, %q) = %q, want error", st.Piano, st.Beat, code)
		}
	}
}

func TestDecodeAcceptsFragmentPrefix(t *testing.T) {
	want := State{Piano: "a", Beat: "b", Sync: true}
	code, _ := Encode(want)

	got, err := Decode("#" + code)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestStoreApplyKeepsStateOnError(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	initial := State{Piano: "asdf", Beat: "qqq", Sync: true}
	store := NewStore(initial, logger)

	if _, err := store.Apply("%%%garbage"); err == nil {
		t.Fatal("Apply() should fail on garbage")
	}
	if store.State() != initial {
		t.Errorf("State() after failed Apply = %+v, want %+v", store.State(), initial)
	}
	if !strings.Contains(buf.String(), "ignoring share code") {
		t.Errorf("failed Apply should be logged, log = %q", buf.String())
	}

	next := State{Piano: "zzz", Beat: "", Sync: false}
	code, _ := Encode(next)
	if _, err := store.Apply(code); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if store.State() != next {
		t.Errorf("State() = %+v, want %+v", store.State(), next)
	}
}

func TestStoreFlags(t *testing.T) {
	store := NewStore(State{}, nil)

	if store.Sync() || store.Playing() {
		t.Fatal("new store should be stopped and unsynced")
	}
	if !store.ToggleSync() || !store.Sync() {
		t.Error("ToggleSync() should enable sync")
	}
	store.SetPlaying(true)
	if !store.Playing() {
		t.Error("SetPlaying(true) not reflected by Playing()")
	}

	store.SetPiano("abc")
	store.SetBeat("def")
	code, err := store.Share()
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	got, _ := Decode(code)
	if got != (State{Piano: "abc", Beat: "def", Sync: true}) {
		t.Errorf("Decode(Share()) = %+v", got)
	}
}
