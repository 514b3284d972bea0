package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestParseTemplate(t *testing.T) {
	got, err := ParseTemplate(" AASTeX ")
	if err != nil || got != TemplateAASTeX {
		t.Fatalf("ParseTemplate()=%q err=%v, want aastex", got, err)
	}
	got, err = ParseTemplate("")
	if err != nil || got != DefaultTemplate {
		t.Fatalf("ParseTemplate(\"\")=%q err=%v, want default", got, err)
	}
	if _, err := ParseTemplate("../etc"); err == nil {
		t.Fatalf("ParseTemplate() expected error for unknown template")
	}
}

func TestTemplates_ReturnsCopy(t *testing.T) {
	list := Templates()
	list[0] = "mutated"
	if Templates()[0] != TemplateAASTeX {
		t.Fatalf("Templates() exposed internal slice")
	}
}

func TestParseOptions_CommaSeparatedAndRepeated(t *testing.T) {
	got := ParseOptions("fix_citations, ai_grammar", "FIX_CITATIONS", "", "spellcheck")
	want := Options{OptionFixCitations, OptionAIGrammar, "spellcheck"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseOptions()=%v, want %v", got, want)
	}
	if !got.Has(OptionAIGrammar) {
		t.Fatalf("Has(ai_grammar)=false")
	}
	if Option("spellcheck").Known() {
		t.Fatalf("Known() true for unrecognized option")
	}
}

func TestJobValidate(t *testing.T) {
	job := Job{ID: "j1", Template: TemplateApJ, ObjectKey: "j1.zip", CreatedAt: time.Now()}
	if err := job.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	job.ObjectKey = ""
	if err := job.Validate(); err == nil {
		t.Fatalf("Validate() expected error for missing object key")
	}
}
