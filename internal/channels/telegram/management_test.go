package telegram

import (
	"strings"
	"testing"
)

func TestFormatGroupInfo_FullDetails(t *testing.T) {
	got := formatGroupInfo("Gophers", -100123, "supergroup", 42, "Go talk")

	for _, want := range []string{"Title: Gophers", "ID: -100123", "Type: supergroup", "Members: 42", "Description: Go talk"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatGroupInfo_OmitsUnknownFields(t *testing.T) {
	got := formatGroupInfo("Gophers", -100123, "group", 0, "")

	if strings.Contains(got, "Members:") {
		t.Errorf("zero member count should be omitted:\n%s", got)
	}
	if strings.Contains(got, "Description:") {
		t.Errorf("empty description should be omitted:\n%s", got)
	}
}
