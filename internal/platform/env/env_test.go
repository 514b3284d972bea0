package env

import (
	"reflect"
	"testing"
	"time"
)

func TestString_DefaultAndOverride(t *testing.T) {
	if got := String("PP_ENV_STRING_DOES_NOT_EXIST", "fallback"); got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
	t.Setenv("PP_ENV_STRING_KEY", "value")
	if got := String("PP_ENV_STRING_KEY", "fallback"); got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
}

func TestStrings_SplitsAndTrims(t *testing.T) {
	t.Setenv("PP_ENV_STRINGS_KEY", " http://a.test, ,http://b.test ")
	got := Strings("PP_ENV_STRINGS_KEY", nil)
	want := []string{"http://a.test", "http://b.test"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings()=%v, want %v", got, want)
	}
}

func TestStrings_Default(t *testing.T) {
	got := Strings("PP_ENV_STRINGS_DOES_NOT_EXIST", []string{"*"})
	if len(got) != 1 || got[0] != "*" {
		t.Fatalf("Strings()=%v, want [*]", got)
	}
}

func TestDuration(t *testing.T) {
	got, err := Duration("PP_ENV_DURATION_DOES_NOT_EXIST", 5*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("Duration()=%v err=%v, want 5s", got, err)
	}
	t.Setenv("PP_ENV_DURATION_KEY", "250ms")
	got, err = Duration("PP_ENV_DURATION_KEY", 5*time.Second)
	if err != nil || got != 250*time.Millisecond {
		t.Fatalf("Duration()=%v err=%v, want 250ms", got, err)
	}
	t.Setenv("PP_ENV_DURATION_KEY", "not-a-duration")
	if _, err := Duration("PP_ENV_DURATION_KEY", time.Second); err == nil {
		t.Fatalf("Duration() expected error")
	}
}

func TestBool(t *testing.T) {
	t.Setenv("PP_ENV_BOOL_KEY", "false")
	got, err := Bool("PP_ENV_BOOL_KEY", true)
	if err != nil || got {
		t.Fatalf("Bool()=%v err=%v, want false", got, err)
	}
	t.Setenv("PP_ENV_BOOL_KEY", "nope")
	if _, err := Bool("PP_ENV_BOOL_KEY", false); err == nil {
		t.Fatalf("Bool() expected error")
	}
}

func TestInt(t *testing.T) {
	got, err := Int("PP_ENV_INT_DOES_NOT_EXIST", 42)
	if err != nil || got != 42 {
		t.Fatalf("Int()=%v err=%v, want 42", got, err)
	}
	t.Setenv("PP_ENV_INT_KEY", " 7 ")
	got, err = Int("PP_ENV_INT_KEY", 42)
	if err != nil || got != 7 {
		t.Fatalf("Int()=%v err=%v, want 7", got, err)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("PP_ENV_FLOAT_KEY", "0.2")
	got, err := Float("PP_ENV_FLOAT_KEY", 1)
	if err != nil || got != 0.2 {
		t.Fatalf("Float()=%v err=%v, want 0.2", got, err)
	}
	t.Setenv("PP_ENV_FLOAT_KEY", "warm")
	if _, err := Float("PP_ENV_FLOAT_KEY", 1); err == nil {
		t.Fatalf("Float() expected error")
	}
}

func TestBlankFallsBackToDefault(t *testing.T) {
	t.Setenv("PP_ENV_BLANK_KEY", "   ")
	if got := String("PP_ENV_BLANK_KEY", "fallback"); got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
	if got, err := Duration("PP_ENV_BLANK_KEY", time.Second); err != nil || got != time.Second {
		t.Fatalf("Duration()=%v err=%v, want 1s", got, err)
	}
	if got := Strings("PP_ENV_BLANK_KEY", []string{"*"}); len(got) != 1 || got[0] != "*" {
		t.Fatalf("Strings()=%v, want [*]", got)
	}
}
